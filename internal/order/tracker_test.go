package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"futures-core/internal/events"
	"futures-core/pkg/exchanges/common"
)

// scriptedFetcher returns its statuses in sequence, repeating the last one.
type scriptedFetcher struct {
	mu       sync.Mutex
	statuses []common.OrderStatus
	errs     []error
	calls    int
}

func (s *scriptedFetcher) GetOrderStatus(ctx context.Context, contract common.Contract, orderID int64) (common.OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.statuses[i], err
}

func (s *scriptedFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var testContract = common.Contract{Symbol: "BTCUSDT"}

func TestWatchResolvesOnFill(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []common.OrderStatus{
		{OrderID: 7, State: common.StateNew},
		{OrderID: 7, State: common.StateFilled, AvgPrice: 99.5, ExecutedQty: 2},
	}}
	tracker := NewTracker(fetcher, 5*time.Millisecond, 0, nil)

	resolved := make(chan float64, 2)
	tracker.Watch(context.Background(), testContract, 7, "test", func(avgPrice float64) {
		resolved <- avgPrice
	})

	select {
	case price := <-resolved:
		if price != 99.5 {
			t.Errorf("resolved price = %v, want 99.5", price)
		}
	case <-time.After(time.Second):
		t.Fatal("resolve never called")
	}

	tracker.Wait()
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("status checks = %d, want 2", got)
	}
	if len(resolved) != 0 {
		t.Error("resolve called more than once")
	}
}

func TestWatchRetriesOnError(t *testing.T) {
	fetcher := &scriptedFetcher{
		statuses: []common.OrderStatus{
			{},
			{OrderID: 7, State: common.StateFilled, AvgPrice: 101},
		},
		errs: []error{errors.New("network down")},
	}
	tracker := NewTracker(fetcher, 5*time.Millisecond, 0, nil)

	resolved := make(chan float64, 1)
	tracker.Watch(context.Background(), testContract, 7, "test", func(avgPrice float64) {
		resolved <- avgPrice
	})

	select {
	case price := <-resolved:
		if price != 101 {
			t.Errorf("resolved price = %v, want 101", price)
		}
	case <-time.After(time.Second):
		t.Fatal("resolve never called after transient error")
	}
	tracker.Wait()
}

func TestWatchGivesUpAfterMaxChecks(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []common.OrderStatus{
		{OrderID: 7, State: common.StateNew},
	}}
	tracker := NewTracker(fetcher, time.Millisecond, 3, nil)

	called := false
	tracker.Watch(context.Background(), testContract, 7, "test", func(float64) { called = true })
	tracker.Wait()

	if called {
		t.Error("resolve must not fire for an unfilled order")
	}
	if got := fetcher.callCount(); got != 3 {
		t.Errorf("status checks = %d, want 3", got)
	}
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []common.OrderStatus{
		{OrderID: 7, State: common.StateNew},
	}}
	tracker := NewTracker(fetcher, time.Hour, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	tracker.Watch(ctx, testContract, 7, "test", func(float64) {
		t.Error("resolve must not fire after cancel")
	})
	cancel()
	tracker.Wait()

	if got := fetcher.callCount(); got != 0 {
		t.Errorf("status checks = %d, want 0", got)
	}
}

func TestWatchPublishesFillEvent(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []common.OrderStatus{
		{OrderID: 7, State: common.StateFilled, AvgPrice: 99.5, ExecutedQty: 2},
	}}
	bus := events.NewBus()
	fills, unsub := bus.Subscribe(events.EventOrderFilled, 1)
	defer unsub()

	tracker := NewTracker(fetcher, time.Millisecond, 0, bus)
	tracker.Watch(context.Background(), testContract, 7, "momentum", func(float64) {})
	tracker.Wait()

	select {
	case msg := <-fills:
		p, ok := msg.(events.OrderPayload)
		if !ok {
			t.Fatalf("payload type %T", msg)
		}
		if p.Strategy != "momentum" || p.OrderID != 7 || p.AvgPrice != 99.5 {
			t.Errorf("payload = %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("fill event never published")
	}
}
