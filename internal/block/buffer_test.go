package block_test

import (
	"testing"

	"github.com/ashgrove/reelengine/internal/block"
	"github.com/ashgrove/reelengine/internal/media"
)

func mkBlock(start, dur media.Timestamp) *media.Block {
	return &media.Block{Type: media.Video, Start: start, Duration: dur}
}

func TestInsertKeepsOrderAcrossOutOfOrderArrivals(t *testing.T) {
	t.Parallel()

	b := block.New[*media.Block](8)
	b.Insert(mkBlock(30, 10))
	b.Insert(mkBlock(10, 10))
	b.Insert(mkBlock(20, 10))

	got := b.Snapshot()
	if len(got) != 3 {
		t.Fatalf("Count = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].StartTime() > got[i].StartTime() {
			t.Fatalf("buffer not ordered: %v then %v", got[i-1].StartTime(), got[i].StartTime())
		}
	}
}

func TestInsertReplacesDuplicateStart(t *testing.T) {
	t.Parallel()

	b := block.New[*media.Block](4)
	first := mkBlock(10, 5)
	second := mkBlock(10, 7)
	b.Insert(first)
	evicted, didEvict := b.Insert(second)

	if didEvict {
		t.Fatalf("replacing a duplicate start time should not evict, got eviction %+v", evicted)
	}
	if b.Count() != 1 {
		t.Fatalf("Count = %d, want 1 after replacement", b.Count())
	}
	got, ok := b.At(10)
	if !ok || got.EndTime() != 17 {
		t.Fatalf("At(10) = %+v, %v; want replaced block with EndTime 17", got, ok)
	}
}

func TestInsertEvictsOldestWhenFull(t *testing.T) {
	t.Parallel()

	b := block.New[*media.Block](2)
	b.Insert(mkBlock(10, 5))
	b.Insert(mkBlock(20, 5))

	if !b.IsFull() {
		t.Fatal("expected buffer to be full at capacity")
	}

	evicted, didEvict := b.Insert(mkBlock(30, 5))
	if !didEvict {
		t.Fatal("expected eviction when inserting beyond capacity")
	}
	if evicted.StartTime() != 10 {
		t.Errorf("evicted.StartTime() = %v, want 10 (oldest)", evicted.StartTime())
	}
	if b.Count() != 2 {
		t.Errorf("Count = %d, want 2 after eviction", b.Count())
	}
	if got, _ := b.Oldest(); got.StartTime() != 20 {
		t.Errorf("Oldest().StartTime() = %v, want 20", got.StartTime())
	}
}

func TestAtFindsContainingOrNearestPriorBlock(t *testing.T) {
	t.Parallel()

	b := block.New[*media.Block](8)
	b.Insert(mkBlock(0, 10))
	b.Insert(mkBlock(10, 10))
	b.Insert(mkBlock(20, 10))

	if got, ok := b.At(15); !ok || got.StartTime() != 10 {
		t.Errorf("At(15) = %+v, %v; want block starting at 10", got, ok)
	}
	if got, ok := b.At(25); !ok || got.StartTime() != 20 {
		t.Errorf("At(25) = %+v, %v; want block starting at 20", got, ok)
	}
	if _, ok := b.At(-5); ok {
		t.Error("At(-5) should find nothing before the first block")
	}
}

func TestRangePercentClampsAtZero(t *testing.T) {
	t.Parallel()

	b := block.New[*media.Block](4)
	b.Insert(mkBlock(100, 10))
	b.Insert(mkBlock(110, 10))

	if got := b.RangePercent(50); got != 0 {
		t.Errorf("RangePercent(50) = %v, want 0 (clamped)", got)
	}
	if got := b.RangePercent(110); got <= 0 || got >= 1 {
		t.Errorf("RangePercent(110) = %v, want strictly between 0 and 1", got)
	}
}

func TestIsInRangeRespectsHalfOpenBounds(t *testing.T) {
	t.Parallel()

	b := block.New[*media.Block](4)
	b.Insert(mkBlock(0, 10))
	b.Insert(mkBlock(10, 10))

	if !b.IsInRange(0) {
		t.Error("expected start to be in range")
	}
	if b.IsInRange(20) {
		t.Error("expected end to be exclusive")
	}
}

func TestClearEmptiesBuffer(t *testing.T) {
	t.Parallel()

	b := block.New[*media.Block](4)
	b.Insert(mkBlock(0, 10))
	b.Clear()

	if b.Count() != 0 {
		t.Errorf("Count = %d after Clear, want 0", b.Count())
	}
	if _, ok := b.Oldest(); ok {
		t.Error("expected Oldest to report nothing after Clear")
	}
}
