package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans user supplied text (captions, messages) to prevent XSS.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
