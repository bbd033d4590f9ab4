// Package util provides utility functions for the FormWeave application.
package util

import (
	"math/rand/v2"
	"strings"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified
// length. Uses math/rand/v2; these IDs are identifiers, not secrets.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// GenerateTemplateID generates a unique template ID with "tpl_" prefix.
func GenerateTemplateID() string {
	return GenerateRandomID("tpl_", 32)
}

// GenerateResponseID generates a unique response ID with "rsp_" prefix.
func GenerateResponseID() string {
	return GenerateRandomID("rsp_", 32)
}

// GenerateAssignmentID generates a unique assignment ID with "asg_" prefix.
func GenerateAssignmentID() string {
	return GenerateRandomID("asg_", 32)
}
