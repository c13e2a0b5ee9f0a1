// Package entity finds contract parties with a local language model and the
// named representative with a text pattern.
package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kalambet/contractd/internal/engine"
	"github.com/kalambet/contractd/internal/extraction"
)

const (
	// MaxTextRunes bounds the prefix of the document sent to the model.
	MaxTextRunes = 50000

	// PartyConfidence is assigned to both party fields.
	PartyConfidence = 0.75
)

// Chatter is the part of a model handle the extractor needs.
// *engine.Handle satisfies it.
type Chatter interface {
	Chat(ctx context.Context, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// Result holds the three fields the entity strategy proposes.
type Result struct {
	CustomerName          extraction.Outcome
	VendorName            extraction.Outcome
	TextualRepresentative extraction.Outcome
}

// Extractor assigns the first two organizations named in a contract to the
// customer and vendor fields. The assignment is positional: it assumes the
// customer is introduced first, which does not hold for every contract.
type Extractor struct {
	chat   Chatter
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger uses slog.Default().
func NewExtractor(chat Chatter, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{chat: chat, logger: logger}
}

// Extract runs both parts of the strategy over text. A failed model call is
// logged and leaves both party fields absent; it never fails the job.
func (e *Extractor) Extract(ctx context.Context, text string) Result {
	res := Result{
		CustomerName:          extraction.Absent(),
		VendorName:            extraction.Absent(),
		TextualRepresentative: extraction.FindFirst(text, extraction.TextualRepresentativeRule),
	}
	if strings.TrimSpace(text) == "" {
		return res
	}

	head := extraction.TruncateRunes(text, MaxTextRunes)
	orgs, err := e.organizations(ctx, head)
	if err != nil {
		e.logger.Warn("entity: organization extraction failed", "error", err)
		return res
	}
	if len(orgs) < 2 {
		return res
	}

	res.CustomerName = party(orgs[0])
	res.VendorName = party(orgs[1])
	return res
}

func party(name string) extraction.Outcome {
	c, err := extraction.NewCandidate(name, PartyConfidence, name)
	if err != nil {
		return extraction.Failed(err)
	}
	return extraction.Found(c)
}

type organizationsResponse struct {
	Organizations []string `json:"organizations"`
}

// organizations asks the model for organization names and keeps only those
// that occur verbatim in text, ordered by first occurrence and deduplicated.
func (e *Extractor) organizations(ctx context.Context, text string) ([]string, error) {
	raw, err := e.chat.Chat(ctx, BuildPrompt(text), organizationsSchema())
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	var resp organizationsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decoding organizations: %w", err)
	}

	type hit struct {
		name string
		pos  int
	}
	seen := make(map[string]bool, len(resp.Organizations))
	var hits []hit
	for _, name := range resp.Organizations {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		pos := strings.Index(text, name)
		if pos < 0 {
			e.logger.Debug("entity: dropping organization not found in text", "organization", name)
			continue
		}
		seen[name] = true
		hits = append(hits, hit{name: name, pos: pos})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out, nil
}
