package pure_utils

// Map applies f to every element of src.
func Map[T, U any](src []T, f func(T) U) []U {
	out := make([]U, len(src))
	for i, item := range src {
		out[i] = f(item)
	}
	return out
}
