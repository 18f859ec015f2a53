package usecases

type VersionUsecase struct {
	AppName    string
	ApiVersion string
}

type ServiceInfo struct {
	Service string
	Version string
	Status  string
}

func (u VersionUsecase) ServiceInfo() ServiceInfo {
	return ServiceInfo{
		Service: u.AppName,
		Version: u.ApiVersion,
		Status:  "running",
	}
}
