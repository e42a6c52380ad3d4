package selector

import (
	"fmt"
	"testing"

	"github.com/pauljones0/offers-bot/internal/models"
	"github.com/pauljones0/offers-bot/internal/util"
)

func offers(n int) []models.Offer {
	out := make([]models.Offer, n)
	for i := range out {
		out[i].ID = fmt.Sprintf("B%03d", i)
	}
	return out
}

func TestBatchSize_InRange(t *testing.T) {
	s := New(util.NewRand(1))
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		n := s.BatchSize()
		if n < 2 || n > 6 {
			t.Fatalf("BatchSize() = %d, want 2..6", n)
		}
		seen[n] = true
	}
	if len(seen) != 5 {
		t.Errorf("Expected every size 2..6 to be drawn, got %v", seen)
	}
}

func TestSelect_SubsetWithoutDuplicates(t *testing.T) {
	s := New(util.NewRand(9))
	in := offers(20)
	valid := map[string]bool{}
	for _, o := range in {
		valid[o.ID] = true
	}

	for run := 0; run < 200; run++ {
		got := s.Select(in)
		if len(got) < 2 || len(got) > 6 {
			t.Fatalf("Expected 2..6 offers, got %d", len(got))
		}
		seen := map[string]bool{}
		for _, o := range got {
			if !valid[o.ID] {
				t.Fatalf("Selected unknown offer %s", o.ID)
			}
			if seen[o.ID] {
				t.Fatalf("Offer %s selected twice", o.ID)
			}
			seen[o.ID] = true
		}
	}
}

func TestSelect_FewerThanBatch(t *testing.T) {
	s := New(util.NewRand(3))
	got := s.Select(offers(1))
	if len(got) != 1 || got[0].ID != "B000" {
		t.Errorf("Expected the single offer back, got %v", got)
	}
}

func TestSelect_Empty(t *testing.T) {
	s := New(util.NewRand(3))
	if got := s.Select(nil); len(got) != 0 {
		t.Errorf("Expected empty result, got %d offers", len(got))
	}
}

func TestSelect_DoesNotMutateInput(t *testing.T) {
	s := New(util.NewRand(5))
	in := offers(10)
	s.Select(in)
	for i, o := range in {
		if o.ID != fmt.Sprintf("B%03d", i) {
			t.Fatalf("Input reordered at %d: %s", i, o.ID)
		}
	}
}
