package common

// BoolPtr returns a pointer to b. Useful for building partial updates.
func BoolPtr(b bool) *bool {
	return &b
}
