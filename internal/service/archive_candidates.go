package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/archiver/internal/database"
	"github.com/kiwari-pos/archiver/internal/enum"
)

// CandidateStore defines the queries used to select archive candidates.
// Satisfied by *database.Queries.
type CandidateStore interface {
	ListOrdersUpdatedBefore(ctx context.Context, arg database.ListOrdersUpdatedBeforeParams) ([]database.Order, error)
	ListOrdersCreatedBefore(ctx context.Context, arg database.ListOrdersCreatedBeforeParams) ([]database.Order, error)
}

// candidateClass is one of the three selection rules.
type candidateClass struct {
	name     string
	statuses []string
	before   time.Time
	// Stale pending/preparing orders are aged by creation time: they never
	// progressed, so updated_at says nothing about them.
	byCreatedAt bool
}

func candidateClasses(th Thresholds) []candidateClass {
	return []candidateClass{
		{
			name:     "completed",
			statuses: enum.StatusesFor(enum.BucketCompleted, enum.BucketDelivered),
			before:   th.Completed,
		},
		{
			name:     "cancelled",
			statuses: enum.StatusesFor(enum.BucketCancelled),
			before:   th.Cancelled,
		},
		{
			name:        "test",
			statuses:    enum.StatusesFor(enum.BucketPending, enum.BucketPreparing),
			before:      th.TestOrders,
			byCreatedAt: true,
		},
	}
}

// classCursor pages through one class by keyset on id.
type classCursor struct {
	class   candidateClass
	page    []database.Order
	afterID uuid.UUID
	done    bool
}

func (c *classCursor) fetch(ctx context.Context, store CandidateStore, limit int32) error {
	var (
		rows []database.Order
		err  error
	)
	if c.class.byCreatedAt {
		rows, err = store.ListOrdersCreatedBefore(ctx, database.ListOrdersCreatedBeforeParams{
			Statuses: c.class.statuses,
			Before:   c.class.before,
			AfterID:  c.afterID,
			Limit:    limit,
		})
	} else {
		rows, err = store.ListOrdersUpdatedBefore(ctx, database.ListOrdersUpdatedBeforeParams{
			Statuses: c.class.statuses,
			Before:   c.class.before,
			AfterID:  c.afterID,
			Limit:    limit,
		})
	}
	if err != nil {
		return fmt.Errorf("select %s candidates: %w", c.class.name, err)
	}

	c.page = rows
	if len(rows) > 0 {
		c.afterID = rows[len(rows)-1].ID
	}
	if int32(len(rows)) < limit {
		c.done = true
	}
	return nil
}

// CandidateSource yields archive candidates page by page: every completed-class
// order first, then cancelled-class, then test-class. Pages are not deduplicated
// across classes; the status sets are disjoint so no order appears twice.
type CandidateSource struct {
	store   CandidateStore
	limit   int32
	cursors []*classCursor
	current int
}

// NewCandidateSource creates a source for the given thresholds. batchSize caps
// how many orders are held in memory at once; values beyond int32 are clamped
// to fit the query LIMIT.
func NewCandidateSource(store CandidateStore, th Thresholds, batchSize int) *CandidateSource {
	if batchSize <= 0 {
		batchSize = 200
	}
	batchSize = min(batchSize, math.MaxInt32)
	classes := candidateClasses(th)
	cursors := make([]*classCursor, len(classes))
	for i, c := range classes {
		cursors[i] = &classCursor{class: c}
	}
	return &CandidateSource{store: store, limit: int32(batchSize), cursors: cursors}
}

// Prime fetches the first page of every class. Call it before any write so
// that a failing selection query aborts the run with nothing changed.
func (s *CandidateSource) Prime(ctx context.Context) error {
	for _, c := range s.cursors {
		if err := c.fetch(ctx, s.store, s.limit); err != nil {
			return err
		}
	}
	return nil
}

// Next returns the next non-empty page, or nil once every class is exhausted.
func (s *CandidateSource) Next(ctx context.Context) ([]database.Order, error) {
	for s.current < len(s.cursors) {
		c := s.cursors[s.current]
		if len(c.page) > 0 {
			page := c.page
			c.page = nil
			return page, nil
		}
		if c.done {
			s.current++
			continue
		}
		if err := c.fetch(ctx, s.store, s.limit); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
