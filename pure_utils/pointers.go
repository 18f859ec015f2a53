package pure_utils

func Ptr[T any](v T) *T {
	return &v
}

// PtrValueOrDefault dereferences ptr, falling back to defaultValue when it is nil.
func PtrValueOrDefault[T any](ptr *T, defaultValue T) T {
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}
