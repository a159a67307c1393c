package utils

// Ptr returns a pointer to a copy of v, for optional fields such as
// ai.GenerationConfig.Temperature that distinguish "unset" from zero.
func Ptr[T any](v T) *T {
	return &v
}
