package risk

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type fakeCounterStore struct {
	values map[string]int64
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{values: map[string]int64{}}
}

func (f *fakeCounterStore) Get(_ context.Context, key string) (string, error) {
	count, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return strconv.FormatInt(count, 10), nil
}

func (f *fakeCounterStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.values[key]++
	return f.values[key], nil
}

func (f *fakeCounterStore) CounterKey(name string) string {
	return "bc:counter:" + name
}

func TestRedisCountersRoundTrip(t *testing.T) {
	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	counters, err := NewRedisCounters(newFakeCounterStore(), func() time.Time { return fixed })
	if err != nil {
		t.Fatalf("NewRedisCounters: %v", err)
	}

	ctx := context.Background()
	sellerID := uuid.New()

	count, err := counters.OrdersToday(ctx, sellerID)
	if err != nil {
		t.Fatalf("OrdersToday: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero before any increment, got %d", count)
	}

	for i := 0; i < 3; i++ {
		if err := counters.IncrOrdersToday(ctx, sellerID); err != nil {
			t.Fatalf("IncrOrdersToday: %v", err)
		}
	}
	if err := counters.IncrCODOrdersToday(ctx, sellerID); err != nil {
		t.Fatalf("IncrCODOrdersToday: %v", err)
	}

	count, err = counters.OrdersToday(ctx, sellerID)
	if err != nil {
		t.Fatalf("OrdersToday: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 orders today, got %d", count)
	}

	codCount, err := counters.CODOrdersToday(ctx, sellerID)
	if err != nil {
		t.Fatalf("CODOrdersToday: %v", err)
	}
	if codCount != 1 {
		t.Fatalf("expected 1 cod order today, got %d", codCount)
	}
}

func TestRedisCountersKeysRollWithDate(t *testing.T) {
	store := newFakeCounterStore()
	day := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)
	counters, err := NewRedisCounters(store, func() time.Time { return day })
	if err != nil {
		t.Fatalf("NewRedisCounters: %v", err)
	}

	ctx := context.Background()
	sellerID := uuid.New()
	if err := counters.IncrOrdersToday(ctx, sellerID); err != nil {
		t.Fatalf("IncrOrdersToday: %v", err)
	}

	// Midnight passes; the same seller starts fresh.
	day = day.Add(2 * time.Hour)
	count, err := counters.OrdersToday(ctx, sellerID)
	if err != nil {
		t.Fatalf("OrdersToday: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected counter to reset across the date boundary, got %d", count)
	}
}
