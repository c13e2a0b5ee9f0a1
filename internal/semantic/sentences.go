package semantic

import (
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
)

func loadTokenizer() *sentences.DefaultSentenceTokenizer {
	tokenizerOnce.Do(func() {
		t, err := english.NewSentenceTokenizer(nil)
		if err == nil {
			tokenizer = t
		}
	})
	return tokenizer
}

// SplitSentences splits text into sentences with the English punkt model.
// If the model cannot be loaded the text is split on periods instead.
func SplitSentences(text string) []string {
	t := loadTokenizer()
	if t == nil {
		return splitOnPeriods(text)
	}
	toks := t.Tokenize(text)
	out := make([]string, 0, len(toks))
	for _, s := range toks {
		out = append(out, s.Text)
	}
	return out
}

func splitOnPeriods(text string) []string {
	return strings.Split(text, ".")
}
