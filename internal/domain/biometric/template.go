package biometric

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// SyntheticMarker tags templates produced without a real reader.
const SyntheticMarker = "_fingerprint_"

// Decode returns the bytes to compare. Stored templates are base64 from the
// reader path; anything that does not decode is compared as raw text.
func Decode(template string) []byte {
	if template == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(template)
	if err != nil {
		return []byte(template)
	}
	return raw
}

// syntheticText is the decoded template when it is a mock, empty otherwise.
func syntheticText(template string) string {
	decoded := Decode(template)
	if !utf8.Valid(decoded) {
		return ""
	}
	text := string(decoded)
	if !strings.Contains(text, SyntheticMarker) {
		return ""
	}
	return text
}

// IsSynthetic reports whether the decoded template carries the mock marker,
// whether it was stored as plain text or base64.
func IsSynthetic(template string) bool {
	return syntheticText(template) != ""
}

// Family is the device-family prefix of a synthetic template: the first two
// underscore-separated tokens of its decoded text. Non-synthetic templates
// have no family.
func Family(template string) string {
	text := syntheticText(template)
	if text == "" {
		return ""
	}
	parts := strings.SplitN(text, "_", 3)
	if len(parts) < 2 {
		return text
	}
	return parts[0] + "_" + parts[1]
}
