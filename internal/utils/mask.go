package utils

// MaskSecret keeps the first four characters of an API key for logs.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "*****"
	}
	return s[:4] + "*****"
}
