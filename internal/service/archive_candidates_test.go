package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/kiwari-pos/archiver/internal/database"
)

func drain(t *testing.T, src *CandidateSource) []database.Order {
	t.Helper()
	var all []database.Order
	for {
		page, err := src.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if page == nil {
			return all
		}
		all = append(all, page...)
	}
}

func TestCandidateSource_ClassOrder(t *testing.T) {
	db := newFakeDB()
	pending := db.addOrder("pendiente", "1.00", hoursAgo(20), hoursAgo(1))
	cancelled := db.addOrder("canceled", "1.00", hoursAgo(60), hoursAgo(50))
	completed := db.addOrder("completada", "1.00", hoursAgo(40), hoursAgo(30))

	th := ComputeThresholds(DefaultArchiveSettings(), testNow)
	src := NewCandidateSource(&fakeStore{db: db}, th, 10)
	if err := src.Prime(context.Background()); err != nil {
		t.Fatalf("prime: %v", err)
	}

	got := drain(t, src)
	want := []uuid.UUID{completed.ID, cancelled.ID, pending.ID}
	if len(got) != len(want) {
		t.Fatalf("candidates: got %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("candidate %d: got %s (%s), want %s", i, got[i].ID, got[i].Status, id)
		}
	}
}

func TestCandidateSource_KeysetPaging(t *testing.T) {
	db := newFakeDB()
	for i := 0; i < 7; i++ {
		db.addOrder("completed", "1.00", hoursAgo(40), hoursAgo(30))
	}
	th := ComputeThresholds(DefaultArchiveSettings(), testNow)
	src := NewCandidateSource(&fakeStore{db: db}, th, 3)
	if err := src.Prime(context.Background()); err != nil {
		t.Fatalf("prime: %v", err)
	}

	got := drain(t, src)
	if len(got) != 7 {
		t.Fatalf("candidates: got %d, want 7", len(got))
	}
	seen := make(map[uuid.UUID]bool)
	for _, o := range got {
		if seen[o.ID] {
			t.Errorf("order %s yielded twice", o.ID)
		}
		seen[o.ID] = true
	}
	// 3 + 3 + 1 for the completed class, 1 for cancelled.
	if db.listUpdatedCalls != 4 {
		t.Errorf("updated-before queries: got %d, want 4", db.listUpdatedCalls)
	}
}

func TestCandidateSource_ExactPageMultiple(t *testing.T) {
	db := newFakeDB()
	for i := 0; i < 4; i++ {
		db.addOrder("cancelled", "1.00", hoursAgo(60), hoursAgo(50))
	}
	th := ComputeThresholds(DefaultArchiveSettings(), testNow)
	src := NewCandidateSource(&fakeStore{db: db}, th, 2)
	if err := src.Prime(context.Background()); err != nil {
		t.Fatalf("prime: %v", err)
	}
	if got := drain(t, src); len(got) != 4 {
		t.Errorf("candidates: got %d, want 4", len(got))
	}
}

func TestCandidateSource_PrimeFailure(t *testing.T) {
	db := newFakeDB()
	db.listUpdatedErr = func(arg database.ListOrdersUpdatedBeforeParams) error {
		for _, s := range arg.Statuses {
			if s == "cancelled" {
				return errInjected
			}
		}
		return nil
	}
	th := ComputeThresholds(DefaultArchiveSettings(), testNow)
	src := NewCandidateSource(&fakeStore{db: db}, th, 10)

	err := src.Prime(context.Background())
	if !errors.Is(err, errInjected) {
		t.Fatalf("error: got %v, want injected failure", err)
	}
	if db.listCreatedCalls != 0 {
		t.Error("selection continued after a failing class")
	}
}

func TestCandidateClasses_StatusSets(t *testing.T) {
	classes := candidateClasses(ComputeThresholds(DefaultArchiveSettings(), testNow))
	if len(classes) != 3 {
		t.Fatalf("classes: got %d, want 3", len(classes))
	}
	if classes[0].byCreatedAt || classes[1].byCreatedAt || !classes[2].byCreatedAt {
		t.Error("only the test-order class is aged by created_at")
	}
	for _, c := range classes {
		for _, s := range c.statuses {
			if s == "archived" {
				t.Errorf("class %s selects archived orders", c.name)
			}
		}
	}
	if !contains(classes[0].statuses, "delivered") || !contains(classes[0].statuses, "completed") {
		t.Errorf("completed class statuses: %v", classes[0].statuses)
	}
	if !contains(classes[2].statuses, "pending") || !contains(classes[2].statuses, "preparing") {
		t.Errorf("test class statuses: %v", classes[2].statuses)
	}
}

func TestCandidateSource_OversizedBatchClampsToInt32(t *testing.T) {
	db := newFakeDB()
	a := db.addOrder("completed", "1.00", hoursAgo(40), hoursAgo(30))
	b := db.addOrder("cancelled", "1.00", hoursAgo(60), hoursAgo(50))

	th := ComputeThresholds(DefaultArchiveSettings(), testNow)
	src := NewCandidateSource(&fakeStore{db: db}, th, math.MaxInt)
	if src.limit != math.MaxInt32 {
		t.Fatalf("limit: got %d, want %d", src.limit, int32(math.MaxInt32))
	}
	if err := src.Prime(context.Background()); err != nil {
		t.Fatalf("prime: %v", err)
	}

	got := drain(t, src)
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Errorf("candidates: got %d, want completed then cancelled", len(got))
	}
}
