package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jjenkins/foirequests/internal/model"
)

// ErrInvalidSourceKind is returned when a value that cannot own a request
// summary is handed to the reconciler
var ErrInvalidSourceKind = errors.New("invalid summary source kind")

// SummaryRepository is the storage the reconciler writes through
type SummaryRepository interface {
	FindByOwner(ctx context.Context, owner model.Owner) (*model.RequestSummary, error)
	Upsert(ctx context.Context, sum *model.RequestSummary) error
	DeleteByOwner(ctx context.Context, owner model.Owner) (bool, error)
}

// Reconciler keeps one RequestSummary in step with each request, draft,
// batch and draft batch
type Reconciler struct {
	summaries  SummaryRepository
	metrics    *Metrics
	autoUpdate bool
}

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

// WithMetrics records reconcile outcomes on m
func WithMetrics(m *Metrics) ReconcilerOption {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithAutoUpdate controls whether AfterSave reconciles. It defaults to true.
func WithAutoUpdate(enabled bool) ReconcilerOption {
	return func(r *Reconciler) {
		r.autoUpdate = enabled
	}
}

// NewReconciler creates a new Reconciler
func NewReconciler(summaries SummaryRepository, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		summaries:  summaries,
		autoUpdate: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// extract projects a source entity onto summary fields
func extract(src model.Summarisable) (*model.RequestSummary, error) {
	if src == nil || isNilPointer(src) {
		return nil, fmt.Errorf("%w: nil %T", ErrInvalidSourceKind, src)
	}

	var sum model.RequestSummary
	switch s := src.(type) {
	case *model.InfoRequest:
		sum.Title = s.Title
		if msg, ok := s.FirstOutgoingMessage(); ok {
			sum.Body = msg.Body
		}
		sum.PublicBodyNames = bodyName(s.PublicBody)
	case *model.DraftInfoRequest:
		sum.Title = s.Title
		sum.Body = s.Body
		sum.PublicBodyNames = bodyName(s.PublicBody)
	case *model.InfoRequestBatch:
		sum.Title = s.Title
		sum.Body = s.Body
		sum.PublicBodyNames = joinBodyNames(s.PublicBodies)
	case *model.DraftInfoRequestBatch:
		sum.Title = s.Title
		sum.Body = s.Body
		sum.PublicBodyNames = joinBodyNames(s.PublicBodies)
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidSourceKind, src)
	}
	sum.Summarisable = src.SummaryOwner()

	return &sum, nil
}

func bodyName(pb *model.PublicBody) sql.NullString {
	if pb == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: pb.Name, Valid: true}
}

func isNilPointer(src model.Summarisable) bool {
	switch s := src.(type) {
	case *model.InfoRequest:
		return s == nil
	case *model.DraftInfoRequest:
		return s == nil
	case *model.InfoRequestBatch:
		return s == nil
	case *model.DraftInfoRequestBatch:
		return s == nil
	}
	return false
}

// joinBodyNames space-joins distinct body names in association order
func joinBodyNames(bodies []model.PublicBody) sql.NullString {
	if len(bodies) == 0 {
		return sql.NullString{}
	}

	seen := make(map[int64]bool, len(bodies))
	names := make([]string, 0, len(bodies))
	for _, pb := range bodies {
		if pb.ID != 0 {
			if seen[pb.ID] {
				continue
			}
			seen[pb.ID] = true
		}
		names = append(names, pb.Name)
	}

	return sql.NullString{String: strings.Join(names, " "), Valid: true}
}

// CreateOrUpdateFrom creates the summary for src, or updates the existing
// one in place. Unsupported kinds fail before anything is read or written.
func (r *Reconciler) CreateOrUpdateFrom(ctx context.Context, src model.Summarisable) (*model.RequestSummary, error) {
	sum, _, err := r.reconcile(ctx, src)
	return sum, err
}

func (r *Reconciler) reconcile(ctx context.Context, src model.Summarisable) (*model.RequestSummary, string, error) {
	want, err := extract(src)
	if err != nil {
		r.metrics.observeReconcile("unknown", outcomeInvalid)
		return nil, outcomeInvalid, err
	}
	owner := want.Summarisable
	kind := string(owner.Type)

	existing, err := r.summaries.FindByOwner(ctx, owner)
	if err != nil {
		r.metrics.observeReconcile(kind, outcomeFailed)
		return nil, outcomeFailed, fmt.Errorf("failed to find summary for %s: %w", owner, err)
	}

	outcome := outcomeCreated
	if existing != nil {
		if existing.SameContent(want) {
			r.metrics.observeReconcile(kind, outcomeUnchanged)
			return existing, outcomeUnchanged, nil
		}
		existing.Title = want.Title
		existing.Body = want.Body
		existing.PublicBodyNames = want.PublicBodyNames
		want = existing
		outcome = outcomeUpdated
	}

	// the unique owner constraint turns a lost race with a concurrent
	// create into an update of the winning row
	if err := r.summaries.Upsert(ctx, want); err != nil {
		r.metrics.observeReconcile(kind, outcomeFailed)
		return nil, outcomeFailed, fmt.Errorf("failed to save summary for %s: %w", owner, err)
	}

	r.metrics.observeReconcile(kind, outcome)
	return want, outcome, nil
}

// Forget removes the summary of a deleted source entity
func (r *Reconciler) Forget(ctx context.Context, owner model.Owner) error {
	if _, err := r.summaries.DeleteByOwner(ctx, owner); err != nil {
		return fmt.Errorf("failed to forget summary for %s: %w", owner, err)
	}
	return nil
}

type skipSummariesKey struct{}

// SkipSummaries returns a context under which saves do not reconcile
// summaries. Bulk imports use it and run a resync afterwards.
func SkipSummaries(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipSummariesKey{}, true)
}

func summariesSkipped(ctx context.Context) bool {
	skip, _ := ctx.Value(skipSummariesKey{}).(bool)
	return skip
}

// AfterSave reconciles src after its owner has been committed
func (r *Reconciler) AfterSave(ctx context.Context, src model.Summarisable) error {
	if !r.autoUpdate || summariesSkipped(ctx) {
		return nil
	}
	_, err := r.CreateOrUpdateFrom(ctx, src)
	return err
}
