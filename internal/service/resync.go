package service

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/jjenkins/foirequests/internal/model"
)

// SourceLoader reads the source entities that own summaries
type SourceLoader interface {
	ListIDs(ctx context.Context, typ model.SummarisableType) ([]int64, error)
	Get(ctx context.Context, owner model.Owner) (model.Summarisable, error)
}

// ResyncStats tracks resync statistics
type ResyncStats struct {
	RunID     string
	Total     int
	Created   int
	Updated   int
	Unchanged int
	Failed    int
}

// Resyncer re-reconciles stored source entities, typically after a bulk
// import that ran with SkipSummaries
type Resyncer struct {
	sources    SourceLoader
	reconciler *Reconciler
	logger     *log.Logger
	errLogger  *log.Logger
}

// NewResyncer creates a new Resyncer
func NewResyncer(sources SourceLoader, reconciler *Reconciler) *Resyncer {
	return &Resyncer{
		sources:    sources,
		reconciler: reconciler,
		logger:     log.New(os.Stdout, "", log.LstdFlags),
		errLogger:  log.New(os.Stderr, "ERROR: ", log.LstdFlags),
	}
}

// Resync reconciles every stored entity of the given kinds, or of every
// kind when none are given. Failures are counted and logged; only
// cancellation or a failure to list a kind stops the run.
func (r *Resyncer) Resync(ctx context.Context, kinds ...model.SummarisableType) (*ResyncStats, error) {
	if len(kinds) == 0 {
		kinds = model.SummarisableTypes
	}
	stats := &ResyncStats{RunID: uuid.NewString()}
	r.logger.Printf("Starting resync %s for %v", stats.RunID, kinds)

	for _, typ := range kinds {
		ids, err := r.sources.ListIDs(ctx, typ)
		if err != nil {
			return stats, fmt.Errorf("failed to list %s: %w", typ, err)
		}
		r.logger.Printf("Found %d %s records", len(ids), typ)

		for idx, id := range ids {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			default:
			}

			progress := fmt.Sprintf("[%d/%d]", idx+1, len(ids))
			r.resyncOne(ctx, model.Owner{Type: typ, ID: id}, progress, stats)
		}
	}

	return stats, nil
}

// ResyncOne reconciles a single stored entity
func (r *Resyncer) ResyncOne(ctx context.Context, owner model.Owner) (*ResyncStats, error) {
	stats := &ResyncStats{RunID: uuid.NewString()}
	if err := r.resyncOne(ctx, owner, "[1/1]", stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *Resyncer) resyncOne(ctx context.Context, owner model.Owner, progress string, stats *ResyncStats) error {
	stats.Total++

	src, err := r.sources.Get(ctx, owner)
	if err != nil {
		r.errLogger.Printf("%s Failed to load %s: %v", progress, owner, err)
		stats.Failed++
		return err
	}

	_, outcome, err := r.reconciler.reconcile(ctx, src)
	if err != nil {
		r.errLogger.Printf("%s Failed to reconcile %s: %v", progress, owner, err)
		stats.Failed++
		return err
	}

	switch outcome {
	case outcomeCreated:
		stats.Created++
	case outcomeUpdated:
		stats.Updated++
	default:
		stats.Unchanged++
	}
	r.logger.Printf("%s %s %s", progress, owner, outcome)

	return nil
}

// PrintSummary prints the resync statistics
func (r *Resyncer) PrintSummary(stats *ResyncStats) {
	r.logger.Println("")
	r.logger.Printf("=== Resync Summary (%s) ===", stats.RunID)
	r.logger.Printf("Total:           %d", stats.Total)
	r.logger.Printf("Created:         %d", stats.Created)
	r.logger.Printf("Updated:         %d", stats.Updated)
	r.logger.Printf("Unchanged:       %d", stats.Unchanged)
	r.logger.Printf("Failed:          %d", stats.Failed)

	if stats.Total > 0 {
		successRate := float64(stats.Total-stats.Failed) / float64(stats.Total) * 100
		r.logger.Printf("Success rate:    %.1f%%", successRate)
	}
}
