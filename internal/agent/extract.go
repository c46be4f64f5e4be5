package agent

import (
	"regexp"
	"strings"
)

var (
	emailPattern   = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	subjectPattern = regexp.MustCompile(`(?i)subject\s*(?:would\s+be|is|:|-)\s*([^,.\n]+?)(?:\s*,|\s*with|\s*$)`)
	namePattern    = regexp.MustCompile(`(?i)name\s*(?:is|:|-)\s*([A-Za-z\s]+?)(?:\s+and\b|\s+email\b|\s*,|\s*$)`)

	subjectLabelPrefix = regexp.MustCompile(`(?i)^\s*(?:the\s+)?subject\s*(?:would\s+be|is|:|-)\s*`)
	nameLabelPrefix    = regexp.MustCompile(`(?i)^\s*(?:the\s+)?name\s*(?:is|:|-)\s*`)

	contentShapePattern = regexp.MustCompile(`(?i)(\d+\s*(?:bullet\s*points?|lines?|points?)|summar(?:y|ize|ise)|brief|highlights?|overview)`)
)

// cancel keywords reset the whole dialogue regardless of state.
var cancelKeywords = []string{"cancel", "stop", "nevermind", "never mind", "forget it"}

func isCancel(input string) bool {
	lowered := strings.ToLower(strings.TrimSpace(input))
	for _, kw := range cancelKeywords {
		if lowered == kw {
			return true
		}
	}
	return false
}

// extractEmail pulls the first email address out of free text.
func extractEmail(text string) string {
	return emailPattern.FindString(text)
}

// extractSubject pulls a labelled subject out of free text, e.g.
// "subject is Quarterly Update" or "subject: Meeting notes".
func extractSubject(text string) string {
	m := subjectPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractName pulls a labelled person name out of free text.
func extractName(text string) string {
	m := namePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return normalizeName(m[1])
}

// stripSubjectLabel removes a leading "subject is/:" label from a direct
// answer so "subject: Hello" stores as "Hello".
func stripSubjectLabel(text string) string {
	return strings.TrimSpace(subjectLabelPrefix.ReplaceAllString(text, ""))
}

func stripNameLabel(text string) string {
	return strings.TrimSpace(nameLabelPrefix.ReplaceAllString(text, ""))
}

func normalizeName(raw string) string {
	words := strings.Fields(raw)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// detectContentRequirement finds a shaping instruction like "in 5 bullet
// points" or "a 3-line summary" that later drives document transformation.
func detectContentRequirement(text string) string {
	m := contentShapePattern.FindString(text)
	return strings.TrimSpace(m)
}

// mentionsDocument reports whether free text points at stored document
// content rather than literal email body text.
func mentionsDocument(text string, available []string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, name := range available {
		base := strings.ToLower(strings.TrimSuffix(name, extOf(name)))
		if base != "" && strings.Contains(lowered, base) {
			return name, true
		}
	}
	for _, kw := range []string{"document", "the doc", "notes", "the file", "attachment"} {
		if strings.Contains(lowered, kw) {
			return "", true
		}
	}
	return "", false
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}
