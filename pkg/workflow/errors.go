package workflow

import (
	"context"
	"errors"

	"github.com/dslunde/Glyph-sub000/pkg/ai"
	"github.com/dslunde/Glyph-sub000/pkg/search"
)

var (
	// ErrMissingCredential is fatal: the run stops without retrying.
	ErrMissingCredential = errors.New("missing provider credential")
	// ErrProviderTimeout is a per-call deadline expiry. It counts against the
	// error budget.
	ErrProviderTimeout = errors.New("provider call timed out")
	// ErrProvider is any other provider failure. It counts against the error
	// budget and triggers a fallback.
	ErrProvider = errors.New("provider call failed")
	// ErrParse is a malformed provider payload.
	ErrParse = errors.New("malformed provider payload")
	// ErrBudgetExceeded is raised when the accumulated error count reaches
	// the budget.
	ErrBudgetExceeded = errors.New("error budget exceeded")
	// ErrWorkflowTimeout is raised when the whole run outlives its deadline.
	ErrWorkflowTimeout = errors.New("workflow timed out")
	// ErrWorkflowCancelled is raised when the caller cancels the run. Unlike
	// a timeout it fails the run.
	ErrWorkflowCancelled = errors.New("workflow cancelled")
)

var sentinels = []error{
	ErrMissingCredential,
	ErrProviderTimeout,
	ErrParse,
	ErrBudgetExceeded,
	ErrWorkflowTimeout,
	ErrWorkflowCancelled,
	ErrProvider,
}

// Classify maps a provider error onto the workflow taxonomy. It returns nil
// for a nil error.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrProviderTimeout
	case errors.Is(err, ai.ErrInvalidResponse), errors.Is(err, search.ErrInvalidResult):
		return ErrParse
	}
	return ErrProvider
}

// errorKind is the metrics label of a classified error.
func errorKind(err error) string {
	switch Classify(err) {
	case ErrProviderTimeout:
		return "timeout"
	case ErrParse:
		return "parse"
	default:
		return "provider"
	}
}
