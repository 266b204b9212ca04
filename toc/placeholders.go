package toc

import (
	"regexp"
	"strings"
)

var (
	dollarTokenRe = regexp.MustCompile(`\$\{([^}]+)\}`)
	angleTokenRe  = regexp.MustCompile(`<([^<>/\s][^<>]*)>`)
)

// SubstitutePlaceholders rewrites leftover ${name} and <name> tokens left in
// cached entry text by earlier document generation stages. Unknown tokens are
// kept verbatim so diagnostics still show what failed to resolve.
func SubstitutePlaceholders(text string, values map[string]string) string {
	if len(values) == 0 {
		return text
	}
	text = dollarTokenRe.ReplaceAllStringFunc(text, func(m string) string {
		key := strings.TrimSpace(m[2 : len(m)-1])
		if v, ok := values[key]; ok {
			return v
		}
		return m
	})
	text = angleTokenRe.ReplaceAllStringFunc(text, func(m string) string {
		key := strings.TrimSpace(m[1 : len(m)-1])
		if v, ok := values[key]; ok {
			return v
		}
		return m
	})
	return text
}
