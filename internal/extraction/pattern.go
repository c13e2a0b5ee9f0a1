package extraction

import (
	"regexp"
	"strings"
)

// PatternRule is an ordered list of expressions tried against a text.
// Group selects the capture group used as the value; 0 is the whole match.
type PatternRule struct {
	Name       FieldName
	Patterns   []*regexp.Regexp
	Confidence float64
	Group      int
}

// FindFirst returns the first match of rule in text. Patterns are tried in
// order and the first one that matches wins; there is no scoring across
// patterns. A pattern with fewer capture groups than rule.Group is skipped.
func FindFirst(text string, rule PatternRule) Outcome {
	if text == "" {
		return Absent()
	}
	for _, re := range rule.Patterns {
		if re.NumSubexp() < rule.Group {
			continue
		}
		m := re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		start, end := m[2*rule.Group], m[2*rule.Group+1]
		if start < 0 {
			continue
		}
		value := strings.ReplaceAll(strings.TrimSpace(text[start:end]), "\n", " ")
		c, err := NewCandidate(value, rule.Confidence, text[m[0]:m[1]])
		if err != nil {
			return Failed(err)
		}
		return Found(c)
	}
	return Absent()
}

// mustPatterns compiles expressions case-insensitively with dot matching newlines.
func mustPatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?is)` + e)
	}
	return out
}
