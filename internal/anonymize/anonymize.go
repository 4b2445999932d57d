// Package anonymize strips and buckets PHI from structured clinical input
// before it ever reaches an external LLM call. Every transform here is
// pure; callers own fetching and caching the data being anonymized.
package anonymize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// AgeBand replaces an exact age with a five-year band "L-L+4" where L is
// the largest multiple of 5 at or below age. A negative age is "unknown".
func AgeBand(age int) string {
	if age < 0 {
		return "unknown"
	}
	low := (age / 5) * 5
	return strconv.Itoa(low) + "-" + strconv.Itoa(low+4)
}

// SessionID replaces a caller-facing identifier with a freshly generated
// opaque reference, breaking any link back to the original identifier.
func SessionID() string {
	return uuid.NewString()
}

var (
	salutationPattern = regexp.MustCompile(`(?i)\b(mr|mrs|ms|dr|patient|name)\.?\s*:?\s*`)
	capitalizedPair   = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)
	phonePattern      = regexp.MustCompile(`(\+?\d[\d\-\s().]{6,}\d)`)
	emailPattern      = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// NormalizeSymptom lowercases and strips PHI from a free-text symptom
// string: salutations/labels are removed, two-word Capitalized Words (a
// likely full name) become [REDACTED], phone-like runs become [PHONE],
// email-like tokens become [EMAIL], and whitespace collapses to single
// spaces.
//
// Order matters: email and phone tokens are replaced first, then
// salutations/labels are stripped so a label such as "Patient" cannot pair
// with a first name and leave the surname behind; the name check runs on
// the original-case text (capitalization is the name signal), and only the
// result is lowercased.
func NormalizeSymptom(s string) string {
	out := emailPattern.ReplaceAllString(s, "[EMAIL]")
	out = phonePattern.ReplaceAllString(out, "[PHONE]")
	out = salutationPattern.ReplaceAllString(out, "")
	out = capitalizedPair.ReplaceAllString(out, "[REDACTED]")
	out = strings.ToLower(out)
	out = whitespaceRun.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// NormalizeSymptoms maps NormalizeSymptom over a slice.
func NormalizeSymptoms(symptoms []string) []string {
	out := make([]string, len(symptoms))
	for i, s := range symptoms {
		out[i] = NormalizeSymptom(s)
	}
	return out
}
