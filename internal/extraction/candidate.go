package extraction

import (
	"fmt"
	"strings"
)

// MaxSnippetLen bounds the source citation stored with a candidate, in runes.
const MaxSnippetLen = 250

// Candidate is one strategy's proposed value for a contract field.
// Build it with NewCandidate; the fields are not modified afterwards.
type Candidate struct {
	Value         any     `json:"value"`
	Confidence    float64 `json:"confidence_score"`
	SourceSnippet string  `json:"source_snippet,omitempty"`
	SourcePage    *int    `json:"source_page,omitempty"`
}

// NewCandidate validates confidence and truncates the snippet.
func NewCandidate(value any, confidence float64, snippet string) (*Candidate, error) {
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence %v outside [0,1]", confidence)
	}
	return &Candidate{
		Value:         value,
		Confidence:    confidence,
		SourceSnippet: TruncateRunes(strings.TrimSpace(snippet), MaxSnippetLen),
	}, nil
}

// WithPage returns a copy of c cited to the given 1-based page.
func (c *Candidate) WithPage(page int) *Candidate {
	cp := *c
	cp.SourcePage = &page
	return &cp
}

// WithSnippetPrefix returns a copy of c whose snippet starts with prefix.
// The prefix is not counted against MaxSnippetLen.
func (c *Candidate) WithSnippetPrefix(prefix string) *Candidate {
	cp := *c
	cp.SourceSnippet = prefix + c.SourceSnippet
	return &cp
}

// StringValue returns the value when it is a string, or "" otherwise.
func (c *Candidate) StringValue() string {
	if c == nil {
		return ""
	}
	s, _ := c.Value.(string)
	return s
}

// TruncateRunes cuts s to at most n runes without splitting a character.
func TruncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// OutcomeKind discriminates the result of one extraction attempt.
type OutcomeKind int

const (
	// KindAbsent means the field is legitimately not present in the document.
	KindAbsent OutcomeKind = iota
	// KindFound means a candidate was extracted.
	KindFound
	// KindFailed means extraction errored; the field is treated as absent.
	KindFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case KindFound:
		return "found"
	case KindFailed:
		return "failed"
	default:
		return "absent"
	}
}

// Outcome is the result of one strategy call for one field.
type Outcome struct {
	Kind      OutcomeKind
	Candidate *Candidate
	Err       error
}

// Found wraps a candidate. A nil candidate yields Absent.
func Found(c *Candidate) Outcome {
	if c == nil {
		return Absent()
	}
	return Outcome{Kind: KindFound, Candidate: c}
}

// Absent reports that nothing was found.
func Absent() Outcome { return Outcome{Kind: KindAbsent} }

// Failed reports an extraction error.
func Failed(err error) Outcome { return Outcome{Kind: KindFailed, Err: err} }

// OK reports whether the outcome carries a candidate.
func (o Outcome) OK() bool { return o.Kind == KindFound && o.Candidate != nil }

// Value returns the candidate, or nil unless the outcome is Found.
func (o Outcome) Value() *Candidate {
	if !o.OK() {
		return nil
	}
	return o.Candidate
}
