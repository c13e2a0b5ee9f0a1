// Package semantic classifies the renewal clause of a contract by comparing
// its sentences to fixed category descriptions in embedding space.
package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kalambet/contractd/internal/extraction"
)

// MinScore is the similarity a sentence must exceed to be reported.
const MinScore = 0.5

// Category is one renewal classification and the sentence that describes it.
type Category struct {
	Name        string
	Description string
}

// Categories are compared in this order.
var Categories = []Category{
	{Name: "Affirmative Renewal", Description: "The contract will automatically renew."},
	{Name: "Negative Renewal", Description: "The contract will not automatically renew."},
	{Name: "Conditional Renewal", Description: "The contract renews unless one party acts to terminate it."},
}

// renewalKeywords matches word stems so "renews", "terms" and "terminated"
// all qualify.
var renewalKeywords = regexp.MustCompile(`(?i)\b(renew\w*|term\w*|evergreen)\b`)

// Classifier finds the sentence closest to a renewal category.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier creates a Classifier. A nil logger uses slog.Default().
func NewClassifier(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{logger: logger}
}

type match struct {
	score    float64
	sentence string
	category string
	page     int
}

// Classify scores every keyword sentence of every page against Categories
// and returns the best match when its score exceeds MinScore.
//
// The returned error is non-nil only when the category descriptions cannot
// be embedded. Failures while embedding page sentences yield a Failed
// outcome instead.
func (c *Classifier) Classify(ctx context.Context, v Vectorizer, pages []string) (extraction.Outcome, error) {
	descs := make([]string, len(Categories))
	for i, cat := range Categories {
		descs[i] = cat.Description
	}
	catVecs, err := v.Embed(ctx, descs...)
	if err != nil {
		return extraction.Outcome{}, fmt.Errorf("embedding renewal categories: %w", err)
	}
	if len(catVecs) != len(Categories) {
		return extraction.Outcome{}, fmt.Errorf("embedding renewal categories: got %d vectors", len(catVecs))
	}

	best := match{}
	for i, text := range pages {
		candidates := CandidateSentences(text)
		if len(candidates) == 0 {
			continue
		}
		vecs, err := EmbedBatch(ctx, v, candidates)
		if err != nil {
			c.logger.Warn("semantic: embedding sentences failed", "page", i+1, "error", err)
			return extraction.Failed(err), nil
		}
		for j, sentence := range candidates {
			score, k := topCategory(vecs[j], catVecs)
			if score > best.score {
				best = match{score: score, sentence: strings.TrimSpace(sentence), category: Categories[k].Name, page: i + 1}
			}
		}
	}

	if best.score <= MinScore {
		return extraction.Absent(), nil
	}
	cand, err := extraction.NewCandidate(
		extraction.RenewalValue{Classification: best.category, Text: best.sentence},
		min(best.score, 1),
		best.sentence,
	)
	if err != nil {
		return extraction.Failed(err), nil
	}
	return extraction.Found(cand.WithPage(best.page)), nil
}

// topCategory returns the best score for vec and its category index. On a tie
// the later category wins.
func topCategory(vec []float32, catVecs [][]float32) (float64, int) {
	best, idx := -2.0, 0
	for k, cv := range catVecs {
		if score := Cosine(vec, cv); score >= best {
			best, idx = score, k
		}
	}
	return best, idx
}

// CandidateSentences returns the sentences of text that mention renewal or
// termination.
func CandidateSentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for _, s := range SplitSentences(text) {
		if renewalKeywords.MatchString(s) {
			out = append(out, s)
		}
	}
	return out
}
