package order

import (
	"context"
	"log"
	"sync"
	"time"

	"futures-core/internal/events"
	"futures-core/pkg/exchanges/common"
)

// StatusFetcher queries the exchange's view of an order.
type StatusFetcher interface {
	GetOrderStatus(ctx context.Context, contract common.Contract, orderID int64) (common.OrderStatus, error)
}

// Tracker resolves placed orders to fill prices. Each watched order gets its
// own timer-driven goroutine: check after a fixed delay, reschedule while the
// order is unfilled or the status query fails, call resolve exactly once when
// a fill is observed. Checks never block the streaming task.
type Tracker struct {
	fetcher   StatusFetcher
	delay     time.Duration
	maxChecks int // 0 = retry forever
	bus       *events.Bus
	wg        sync.WaitGroup
}

// NewTracker creates an order lifecycle tracker.
func NewTracker(fetcher StatusFetcher, delay time.Duration, maxChecks int, bus *events.Bus) *Tracker {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Tracker{
		fetcher:   fetcher,
		delay:     delay,
		maxChecks: maxChecks,
		bus:       bus,
	}
}

// Watch schedules status checks for an order until it fills, ctx ends, or
// the configured check budget runs out. resolve is invoked at most once,
// never synchronously from Watch.
func (t *Tracker) Watch(ctx context.Context, contract common.Contract, orderID int64, strategyName string, resolve func(avgPrice float64)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		timer := time.NewTimer(t.delay)
		defer timer.Stop()

		for checks := 0; ; {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			checks++
			status, err := t.fetcher.GetOrderStatus(ctx, contract, orderID)
			if err != nil {
				// Treated as "not yet resolved"; reschedule.
				log.Printf("order %d status check failed: %v", orderID, err)
			} else {
				log.Printf("order %d status: %s", orderID, status.State)
				if status.State == common.StateFilled {
					resolve(status.AvgPrice)
					if t.bus != nil {
						t.bus.Publish(events.EventOrderFilled, events.OrderPayload{
							Strategy: strategyName,
							Symbol:   contract.Symbol,
							OrderID:  orderID,
							Quantity: status.ExecutedQty,
							State:    string(status.State),
							AvgPrice: status.AvgPrice,
							Time:     time.Now().UnixMilli(),
						})
					}
					return
				}
			}

			if t.maxChecks > 0 && checks >= t.maxChecks {
				log.Printf("order %d still unresolved after %d checks, giving up", orderID, checks)
				return
			}
			timer.Reset(t.delay)
		}
	}()
}

// Wait blocks until every watched order goroutine has finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
