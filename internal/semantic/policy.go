package semantic

import (
	"context"
	"fmt"

	"github.com/kalambet/contractd/internal/extraction"
)

// MinTrustedConfidence is the confidence a semantic classification must
// exceed before it is preferred over the regex fallback.
const MinTrustedConfidence = 0.65

// Method identifies one way of producing renewal terms.
type Method string

const (
	MethodSemantic Method = "semantic"
	MethodRegex    Method = "regex_fallback"
)

// Step is one row of a renewal decision table.
type Step struct {
	Method Method
	Accept func(extraction.Outcome) bool
}

// RenewalPolicy tries the semantic classifier first and falls back to the
// renewal regex, whose result is always taken.
var RenewalPolicy = []Step{
	{Method: MethodSemantic, Accept: func(o extraction.Outcome) bool {
		return o.OK() && o.Candidate.Confidence > MinTrustedConfidence
	}},
	{Method: MethodRegex, Accept: func(extraction.Outcome) bool { return true }},
}

// Runner produces an outcome for one Method. A non-nil error is fatal to the
// job and stops the policy.
type Runner func(ctx context.Context) (extraction.Outcome, error)

// Decide walks policy in order, running each step's method at most once, and
// returns the first accepted outcome together with the method that produced
// it. When no step accepts, the outcome is Absent.
func Decide(ctx context.Context, policy []Step, runners map[Method]Runner) (extraction.Outcome, Method, error) {
	done := make(map[Method]extraction.Outcome, len(policy))
	for _, step := range policy {
		out, ok := done[step.Method]
		if !ok {
			run, found := runners[step.Method]
			if !found {
				return extraction.Outcome{}, "", fmt.Errorf("no runner for renewal method %q", step.Method)
			}
			var err error
			if out, err = run(ctx); err != nil {
				return extraction.Outcome{}, step.Method, err
			}
			done[step.Method] = out
		}
		if step.Accept(out) {
			return out, step.Method, nil
		}
	}
	return extraction.Absent(), "", nil
}
