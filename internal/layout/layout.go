// Package layout reads the signatory from the signature block at the bottom
// of the last page.
package layout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/contractd/internal/document"
	"github.com/kalambet/contractd/internal/extraction"
)

// ZoneReader yields the signature zone of a document. *document.Context
// satisfies it.
type ZoneReader interface {
	SignatureZone(ctx context.Context) (document.Zone, error)
}

// Extractor applies the signature block rule to the signature zone only.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger uses slog.Default().
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract returns the signature block signatory found in the zone, cited to
// the zone's page. Errors reading the zone are logged and reported as absent.
func (e *Extractor) Extract(ctx context.Context, doc ZoneReader) extraction.Outcome {
	zone, err := doc.SignatureZone(ctx)
	if err != nil {
		e.logger.Warn("layout: reading signature zone failed", "error", err)
		return extraction.Absent()
	}
	if strings.TrimSpace(zone.Text) == "" {
		return extraction.Absent()
	}

	out := extraction.FindFirst(zone.Text, extraction.SignatureBlockRule)
	if !out.OK() {
		return out
	}
	prefix := fmt.Sprintf("Found in signature zone on page %d: ", zone.Page)
	return extraction.Found(out.Candidate.WithSnippetPrefix(prefix).WithPage(zone.Page))
}
