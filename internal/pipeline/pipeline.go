// Package pipeline runs the extraction strategies over one document in a
// fixed order and collects their results into a FieldSet.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/contractd/internal/document"
	"github.com/kalambet/contractd/internal/engine"
	"github.com/kalambet/contractd/internal/entity"
	"github.com/kalambet/contractd/internal/extraction"
	"github.com/kalambet/contractd/internal/layout"
	"github.com/kalambet/contractd/internal/semantic"
)

// Models names the models the strategies need.
type Models struct {
	Entity string
	Embed  string
}

// StageReport captures diagnostic information about one stage.
type StageReport struct {
	Name       string
	DurationMs int64
}

// Metadata captures diagnostic information about a run.
type Metadata struct {
	Stages        []StageReport
	RenewalMethod semantic.Method
	DurationMs    int64
}

// Pipeline holds the strategies. It keeps no per-document state and can be
// shared by concurrent jobs.
type Pipeline struct {
	eng    engine.Engine
	models Models
	logger *slog.Logger

	layout     *layout.Extractor
	classifier *semantic.Classifier
	policy     []semantic.Step
}

// New creates a Pipeline. A nil logger uses slog.Default().
func New(eng engine.Engine, models Models, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		eng:        eng,
		models:     models,
		logger:     logger,
		layout:     layout.NewExtractor(logger),
		classifier: semantic.NewClassifier(logger),
		policy:     semantic.RenewalPolicy,
	}
}

// Models returns the models the pipeline was configured with.
func (p *Pipeline) Models() Models { return p.models }

// Preflight checks that the engine is up and both models are present,
// without loading either of them.
func (p *Pipeline) Preflight(ctx context.Context) error {
	return engine.Available(ctx, p.eng, p.models.Entity, p.models.Embed)
}

// run is the state of one document moving through the stages.
type run struct {
	path string
	doc  *document.Context
	fs   extraction.FieldSet
	meta Metadata
}

type stage struct {
	name string
	fn   func(ctx context.Context, r *run) error
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{"loader", p.load},
		{"context", p.entities},
		{"pattern", p.pattern},
		{"layout", p.signature},
		{"semantic", p.renewal},
	}
}

// Run extracts every field it can from the PDF at path. An absent field never
// stops the run; only resource failures such as engine.ErrModelUnavailable
// and unexpected errors are returned.
func (p *Pipeline) Run(ctx context.Context, path string) (*extraction.FieldSet, Metadata, error) {
	start := time.Now()
	r := &run{path: path}
	for _, s := range p.stages() {
		t := time.Now()
		if err := s.fn(ctx, r); err != nil {
			return nil, r.meta, fmt.Errorf("%s stage: %w", s.name, err)
		}
		r.meta.Stages = append(r.meta.Stages, StageReport{Name: s.name, DurationMs: time.Since(t).Milliseconds()})
	}
	r.meta.DurationMs = time.Since(start).Milliseconds()
	return &r.fs, r.meta, nil
}

func (p *Pipeline) load(ctx context.Context, r *run) error {
	r.doc = document.Load(ctx, r.path, p.logger)
	return nil
}

func (p *Pipeline) entities(ctx context.Context, r *run) error {
	h, err := engine.Acquire(ctx, p.eng, p.models.Entity)
	if err != nil {
		return err
	}
	defer h.Release()

	res := entity.NewExtractor(h, p.logger).Extract(ctx, r.doc.FullText)
	p.set(&r.fs.CustomerName, extraction.FieldCustomerName, res.CustomerName)
	p.set(&r.fs.VendorName, extraction.FieldVendorName, res.VendorName)
	p.set(&r.fs.TextualRepresentative, extraction.FieldTextualRepresentative, res.TextualRepresentative)
	return nil
}

func (p *Pipeline) pattern(_ context.Context, r *run) error {
	p.set(&r.fs.PaymentTerms, extraction.FieldPaymentTerms, extraction.FindFirst(r.doc.FullText, extraction.PaymentTermsRule))
	p.set(&r.fs.BillingCycle, extraction.FieldBillingCycle, extraction.FindFirst(r.doc.FullText, extraction.BillingCycleRule))
	return nil
}

func (p *Pipeline) signature(ctx context.Context, r *run) error {
	p.set(&r.fs.SignatureBlockSignatory, extraction.FieldSignatureBlockSignatory, p.layout.Extract(ctx, r.doc))
	return nil
}

func (p *Pipeline) renewal(ctx context.Context, r *run) error {
	h, err := engine.Acquire(ctx, p.eng, p.models.Embed)
	if err != nil {
		return err
	}
	defer h.Release()

	out, method, err := semantic.Decide(ctx, p.policy, map[semantic.Method]semantic.Runner{
		semantic.MethodSemantic: func(ctx context.Context) (extraction.Outcome, error) {
			return p.classifier.Classify(ctx, h, r.doc.Pages)
		},
		semantic.MethodRegex: func(context.Context) (extraction.Outcome, error) {
			return extraction.FindFirst(r.doc.FullText, extraction.RenewalFallbackRule), nil
		},
	})
	if err != nil {
		return err
	}
	r.meta.RenewalMethod = method
	p.set(&r.fs.RenewalTerms, extraction.FieldRenewalTerms, out)
	return nil
}

// set stores a found candidate. Failed outcomes are logged and leave the
// slot empty.
func (p *Pipeline) set(slot **extraction.Candidate, name extraction.FieldName, out extraction.Outcome) {
	switch out.Kind {
	case extraction.KindFound:
		*slot = out.Candidate
	case extraction.KindFailed:
		p.logger.Warn("pipeline: extraction failed", "field", string(name), "error", out.Err)
	}
}
