package host

import (
	"unicode"
)

// scriptName converts a Go method name to lowerCamelCase.
// Handles acronyms: GetHTTPURL -> getHTTPURL, HTTPServer -> httpServer, ID -> id
func scriptName(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	upper := 0
	for upper < len(runes) && unicode.IsUpper(runes[upper]) {
		upper++
	}

	switch {
	case upper == 0:
		return s
	case upper == 1:
		runes[0] = unicode.ToLower(runes[0])
	case upper == len(runes):
		for i := range runes {
			runes[i] = unicode.ToLower(runes[i])
		}
	default:
		// Last uppercase before lowercase starts next word, not part of acronym
		end := upper
		if unicode.IsLower(runes[upper]) {
			end--
		}
		for i := 0; i < end; i++ {
			runes[i] = unicode.ToLower(runes[i])
		}
	}
	return string(runes)
}
