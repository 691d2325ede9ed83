// Package report aggregates per-post failures across one run.
package report

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Class classifies a failure recorded in the run error log.
type Class string

const (
	ClassPayloadStore       Class = "payload_store_failure"
	ClassInvalidPayload     Class = "invalid_payload"
	ClassMissingDestination Class = "missing_primary_destination"
	ClassContainerFailure   Class = "instagram_container_failure"
	ClassPublishFailure     Class = "instagram_publish_failure"
	ClassSecondaryPlatform  Class = "facebook_publish_failure"
	ClassLedgerFailure      Class = "ledger_failure"
	ClassSyncFailure        Class = "sync_failure"
)

// Outcome is how a single payload ended.
type Outcome string

const (
	OutcomeCommitted        Outcome = "committed"
	OutcomeAlreadyPublished Outcome = "already_published"
	OutcomeNotDue           Outcome = "not_due"
	OutcomeSkipped          Outcome = "skipped"
	OutcomeFailed           Outcome = "failed"
	OutcomeDryRun           Outcome = "dry_run"
)

// Failure is one entry of the run error log.
type Failure struct {
	PublishID string
	Path      string
	Class     Class
	Err       error
}

func (f *Failure) Error() string {
	who := f.PublishID
	if who == "" {
		who = f.Path
	}
	return fmt.Sprintf("[%s] %s: %v", who, f.Class, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Report is reset every run and never persisted.
type Report struct {
	mu       sync.Mutex
	RunID    string
	errs     *multierror.Error
	outcomes map[Outcome]int
}

func New(runID string) *Report {
	return &Report{
		RunID:    runID,
		errs:     &multierror.Error{ErrorFormat: formatList},
		outcomes: make(map[Outcome]int),
	}
}

// Fail appends a failure to the run error log. It never stops the run.
func (r *Report) Fail(pubID, path string, class Class, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = multierror.Append(r.errs, &Failure{PublishID: pubID, Path: path, Class: class, Err: err})
}

// Record counts how a payload ended.
func (r *Report) Record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[o]++
}

// Count returns how many payloads ended with o.
func (r *Report) Count(o Outcome) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[o]
}

// Failures returns the run error log in insertion order.
func (r *Report) Failures() []*Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Failure, 0, len(r.errs.Errors))
	for _, e := range r.errs.Errors {
		if f, ok := e.(*Failure); ok {
			out = append(out, f)
		}
	}
	return out
}

// Err returns the aggregated failures, or nil when the run was clean.
func (r *Report) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs.ErrorOrNil()
}

// Summary returns slog attributes describing the run.
func (r *Report) Summary() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return []any{
		"run_id", r.RunID,
		"committed", r.outcomes[OutcomeCommitted],
		"already_published", r.outcomes[OutcomeAlreadyPublished],
		"not_due", r.outcomes[OutcomeNotDue],
		"skipped", r.outcomes[OutcomeSkipped],
		"failed", r.outcomes[OutcomeFailed],
		"dry_run", r.outcomes[OutcomeDryRun],
		"errors", len(r.errs.Errors),
	}
}

func formatList(errs []error) string {
	if len(errs) == 1 {
		return fmt.Sprintf("1 error occurred during the run:\n\t* %s\n", errs[0])
	}
	points := make([]string, len(errs))
	for i, err := range errs {
		points[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf("%d errors occurred during the run:\n\t%s\n", len(errs), strings.Join(points, "\n\t"))
}
