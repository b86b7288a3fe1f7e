package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nutricare-ph/nutricare-api/internal/models"
	appErrors "github.com/nutricare-ph/nutricare-api/pkg/errors"
)

// EntityRef identifies one bulk target with its display name.
type EntityRef struct {
	ID   string
	Name string
}

// EligibilityRule decides whether a resolved target may be acted on at all.
// An empty reason means eligible; anything else sends the target straight to
// the skipped list without a mutation attempt.
type EligibilityRule func(ref EntityRef) (reason string)

// EntityMutator is the per-id mutation collaborator. Resolve returns refs
// for the ids it knows about (unknown ids are simply omitted); Apply performs
// the state transition for a single id and is attempted independently per
// item.
type EntityMutator interface {
	Resolve(ctx context.Context, ids []string) ([]EntityRef, error)
	Apply(ctx context.Context, id string, action models.BulkAction) error
}

// BulkOptions tunes a single bulk invocation.
type BulkOptions struct {
	Rule EligibilityRule
	// OnProgress, when set, receives completed/total counts as attempted
	// items finish. It is invoked from the collecting goroutine only.
	OnProgress func(models.BulkProgress)
}

type bulkAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type bulkMetricsRecorder interface {
	RecordBulkOutcomes(action models.BulkAction, outcome string, n int)
}

// BulkService coordinates state-transition actions over a caller-supplied
// selection. Items succeed or fail independently; the batch as a whole is
// deliberately non-transactional and partial success is the expected,
// correctly-reported outcome.
type BulkService struct {
	concurrency int
	audit       bulkAuditLogger
	metrics     bulkMetricsRecorder
	logger      *zap.Logger
}

// NewBulkService constructs the coordinator. Concurrency below two keeps the
// always-correct sequential path. Audit and metrics collaborators are
// optional.
func NewBulkService(concurrency int, audit bulkAuditLogger, metrics bulkMetricsRecorder, logger *zap.Logger) *BulkService {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkService{concurrency: concurrency, audit: audit, metrics: metrics, logger: logger}
}

const reasonCancelled = "operation cancelled"

// Apply partitions the selection by eligibility, attempts each eligible id
// independently against the mutator, and reports every input id in exactly
// one of success/failed/skipped. A mutator failure for one id never aborts
// the others; only a failure to resolve the selection at all fails the call.
func (s *BulkService) Apply(ctx context.Context, mutator EntityMutator, sel models.SelectionSet, action models.BulkAction, opts BulkOptions) (*models.BulkActionResult, error) {
	if mutator == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "bulk mutator is required")
	}
	if !action.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported bulk action: %s", action))
	}
	result := &models.BulkActionResult{
		Action:  action,
		Success: []models.BulkSuccess{},
		Failed:  []models.BulkFailure{},
		Skipped: []models.BulkSkip{},
	}
	if len(sel.IDs) == 0 {
		return result, nil
	}

	refs, err := mutator.Resolve(ctx, sel.IDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSourceUnavailable.Code, appErrors.ErrSourceUnavailable.Status, "failed to resolve bulk selection")
	}
	byID := make(map[string]EntityRef, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
	}

	// Pre-mutation partition: duplicates and ineligible targets are skipped
	// and never attempted. Unknown ids stay in the attempt list so the
	// mutation source reports them individually (typically "not found").
	seen := make(map[string]struct{}, len(sel.IDs))
	pending := make([]EntityRef, 0, len(sel.IDs))
	for _, id := range sel.IDs {
		if _, dup := seen[id]; dup {
			result.Skipped = append(result.Skipped, models.BulkSkip{ID: id, Name: byID[id].Name, Reason: "duplicate id in selection"})
			continue
		}
		seen[id] = struct{}{}
		ref, known := byID[id]
		if !known {
			ref = EntityRef{ID: id}
		}
		if known && opts.Rule != nil {
			if reason := opts.Rule(ref); reason != "" {
				result.Skipped = append(result.Skipped, models.BulkSkip{ID: ref.ID, Name: ref.Name, Reason: reason})
				continue
			}
		}
		pending = append(pending, ref)
	}

	outcomes := s.attempt(ctx, mutator, action, pending, opts.OnProgress)
	for _, outcome := range outcomes {
		switch {
		case outcome.cancelled:
			result.Skipped = append(result.Skipped, models.BulkSkip{ID: outcome.ref.ID, Name: outcome.ref.Name, Reason: reasonCancelled})
		case outcome.err != nil:
			result.Failed = append(result.Failed, models.BulkFailure{ID: outcome.ref.ID, Reason: outcome.err.Error()})
		default:
			result.Success = append(result.Success, models.BulkSuccess{ID: outcome.ref.ID, Name: outcome.ref.Name})
		}
	}

	if s.metrics != nil {
		s.metrics.RecordBulkOutcomes(action, "success", len(result.Success))
		s.metrics.RecordBulkOutcomes(action, "failed", len(result.Failed))
		s.metrics.RecordBulkOutcomes(action, "skipped", len(result.Skipped))
	}

	s.emitAudit(ctx, action, result)
	return result, nil
}

type bulkOutcome struct {
	ref       EntityRef
	err       error
	cancelled bool
}

// attempt runs the eligible items either sequentially or on a bounded worker
// pool. Each worker writes only its own slot of the outcome slice, so no
// cross-item locking is needed; completion order affects progress cadence
// only, never correctness.
func (s *BulkService) attempt(ctx context.Context, mutator EntityMutator, action models.BulkAction, pending []EntityRef, onProgress func(models.BulkProgress)) []bulkOutcome {
	outcomes := make([]bulkOutcome, len(pending))
	if len(pending) == 0 {
		return outcomes
	}

	total := len(pending)
	if s.concurrency <= 1 {
		for i, ref := range pending {
			outcomes[i] = s.applyOne(ctx, mutator, ref, action)
			if onProgress != nil {
				onProgress(models.BulkProgress{Completed: i + 1, Total: total})
			}
		}
		return outcomes
	}

	jobs := make(chan int)
	done := make(chan int)
	var wg sync.WaitGroup
	workers := s.concurrency
	if workers > total {
		workers = total
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = s.applyOne(ctx, mutator, pending[i], action)
				done <- i
			}
		}()
	}

	go func() {
		for i := range pending {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(done)
	}()

	completed := 0
	for range done {
		completed++
		if onProgress != nil {
			onProgress(models.BulkProgress{Completed: completed, Total: total})
		}
	}
	return outcomes
}

func (s *BulkService) applyOne(ctx context.Context, mutator EntityMutator, ref EntityRef, action models.BulkAction) bulkOutcome {
	select {
	case <-ctx.Done():
		return bulkOutcome{ref: ref, cancelled: true}
	default:
	}
	if err := mutator.Apply(ctx, ref.ID, action); err != nil {
		s.logger.Warn("bulk item failed",
			zap.String("id", ref.ID),
			zap.String("action", string(action)),
			zap.Error(err))
		return bulkOutcome{ref: ref, err: err}
	}
	return bulkOutcome{ref: ref}
}

func (s *BulkService) emitAudit(ctx context.Context, action models.BulkAction, result *models.BulkActionResult) {
	if s.audit == nil {
		return
	}
	detail := fmt.Sprintf("success=%d failed=%d skipped=%d", len(result.Success), len(result.Failed), len(result.Skipped))
	log := &models.AuditLog{
		Action:   models.AuditActionBulkAction,
		Resource: string(action),
		Detail:   detail,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist bulk audit log", zap.Error(err))
	}
}
