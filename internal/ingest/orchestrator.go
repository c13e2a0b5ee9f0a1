// Package ingest drives uploaded contracts through extraction: the
// orchestrator owns one job's state transitions and the worker feeds it from
// the job queue.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"runtime/debug"
	"strings"

	"github.com/kalambet/contractd/internal/consolidate"
	"github.com/kalambet/contractd/internal/extraction"
	"github.com/kalambet/contractd/internal/pipeline"
	"github.com/kalambet/contractd/internal/storage"
)

// Progress messages written while a contract is processed.
const (
	MsgStarting   = "Starting advanced contract analysis..."
	MsgFinalizing = "Finalizing analysis and saving results..."
	MsgComplete   = "Processing complete."
	MsgFailed     = "Processing failed."
)

// ContractStore is the subset of the record store the orchestrator writes to.
type ContractStore interface {
	UpdateProgress(id string, progress int, message string) error
	CompleteContract(id string, c storage.Completion) error
	FailContract(id, message, errMsg string) error
}

// Analyzer runs extraction over one PDF.
type Analyzer interface {
	Preflight(ctx context.Context) error
	Run(ctx context.Context, path string) (*extraction.FieldSet, pipeline.Metadata, error)
}

// Input identifies one contract to process.
type Input struct {
	ContractID string
	Path       string // local PDF path
	FileName   string // name as uploaded, used for search tokens
}

// Orchestrator moves a contract from processing to a terminal state.
type Orchestrator struct {
	store    ContractStore
	analyzer Analyzer
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil logger uses slog.Default().
func NewOrchestrator(store ContractStore, analyzer Analyzer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: store, analyzer: analyzer, logger: logger}
}

// Process runs the full extraction for in and writes exactly one terminal
// record. The returned error is the cause of a terminal error write, or a
// failure to write the terminal record itself.
func (o *Orchestrator) Process(ctx context.Context, in Input) (err error) {
	log := o.logger.With("contract_id", in.ContractID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("contract processing panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			o.fail(log, in.ContractID, err)
		}
	}()

	o.progress(log, in.ContractID, 10, MsgStarting)

	if err := o.analyzer.Preflight(ctx); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}

	fs, meta, err := o.analyzer.Run(ctx, in.Path)
	if err != nil {
		return err
	}
	log.Info("extraction finished", "duration_ms", meta.DurationMs, "renewal_method", string(meta.RenewalMethod))

	o.progress(log, in.ContractID, 90, MsgFinalizing)

	res := consolidate.Finalize(fs)
	if err := consolidate.Validate(res); err != nil {
		return err
	}
	data, err := json.Marshal(res.ExtractedData)
	if err != nil {
		return fmt.Errorf("encoding extracted data: %w", err)
	}

	err = o.store.CompleteContract(in.ContractID, storage.Completion{
		ExtractedData:  data,
		IdentifiedGaps: res.IdentifiedGaps,
		SearchContent:  SearchContent(in.FileName, res.ExtractedData.Customer(), res.ExtractedData.Vendor()),
		Message:        MsgComplete,
	})
	if err != nil {
		return fmt.Errorf("saving results: %w", err)
	}
	log.Info("contract completed", "gaps_count", res.GapsCount)
	return nil
}

func (o *Orchestrator) progress(log *slog.Logger, id string, pct int, msg string) {
	if err := o.store.UpdateProgress(id, pct, msg); err != nil {
		log.Warn("progress update failed", "progress", pct, "error", err)
	}
}

func (o *Orchestrator) fail(log *slog.Logger, id string, cause error) {
	log.Error("contract processing failed", "error", cause)
	if err := o.store.FailContract(id, MsgFailed, "An error occurred: "+cause.Error()); err != nil {
		log.Error("failed to record contract failure", "error", err)
	}
}

var (
	nonAlnum      = regexp.MustCompile(`[^A-Za-z0-9]+`)
	nonAlnumSpace = regexp.MustCompile(`[^A-Za-z0-9\s]+`)
)

// SearchContent builds the free-text search field for a contract from its
// file name and party names.
func SearchContent(fileName, customer, vendor string) string {
	parts := []string{
		nonAlnum.ReplaceAllString(fileName, " "),
		nonAlnumSpace.ReplaceAllString(customer, ""),
		nonAlnumSpace.ReplaceAllString(vendor, ""),
	}
	var b strings.Builder
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}
