package dto

type ErrorDto struct {
	Detail string `json:"detail"`
}
