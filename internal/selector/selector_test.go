package selector

import (
	"fmt"
	"testing"
	"time"

	"github.com/coilhq/interledger-relay/internal/failure"
	"github.com/coilhq/interledger-relay/internal/route"
)

func TestSelectDeterministic(t *testing.T) {
	entry := &route.Entry{
		SubRoutes: []route.SubRoute{
			{ID: 0, Partition: 0.25},
			{ID: 1, Partition: 0.75},
		},
	}
	failures := failure.NewRegistry(nil)
	now := time.Now()

	first, err := Select(entry, failures, []byte("private.moneyd.foo"), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Select(entry, failures, []byte("private.moneyd.foo"), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("selection was not deterministic: got %d then %d", first.ID, second.ID)
	}
}

func TestSelectNoAvailableRoute(t *testing.T) {
	entry := &route.Entry{
		SubRoutes: []route.SubRoute{
			{ID: 0, Partition: 1, Failover: &route.FailoverPolicy{WindowSize: 1, FailRatio: 1, FailDuration: time.Hour}},
		},
	}
	failures := failure.NewRegistry([]route.Entry{*entry})
	now := time.Now()
	failures.RecordFailure(0, now)

	if _, err := Select(entry, failures, []byte("x"), now); err != ErrNoAvailableRoute {
		t.Errorf("expected ErrNoAvailableRoute, got %v", err)
	}
}

func TestSelectDistributionConverges(t *testing.T) {
	entry := &route.Entry{
		SubRoutes: []route.SubRoute{
			{ID: 0, Partition: 0.25},
			{ID: 1, Partition: 0.75},
		},
	}
	failures := failure.NewRegistry(nil)
	now := time.Now()

	counts := map[int]int{}
	const n = 10000
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("condition-%d", i))
		sr, err := Select(entry, failures, key, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		counts[sr.ID]++
	}

	wantA := float64(n) * 0.25
	if diff := float64(counts[0]) - wantA; diff < -400 || diff > 400 {
		t.Errorf("sub-route 0 got %d selections, want ~%.0f", counts[0], wantA)
	}
}
