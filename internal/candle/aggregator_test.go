package candle

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func seedAggregator(t *testing.T) *Aggregator {
	t.Helper()
	a := NewAggregator("BTCUSDT", "1m", []Candle{{
		Timeframe: "1m",
		OpenTime:  1000,
		Open:      100, High: 100, Low: 100, Close: 100,
		Source: SourceSeed,
	}})
	// Pin the wall clock behind every test timestamp so staleness never fires.
	a.now = func() int64 { return 0 }
	return a
}

func TestIngestSameInterval(t *testing.T) {
	a := seedAggregator(t)

	if ev := a.Ingest(105, 1, 1000); ev != EventSame {
		t.Fatalf("event = %v, want EventSame", ev)
	}
	got := a.Last()
	if got.Open != 100 || got.High != 105 || got.Low != 100 || got.Close != 105 || got.Volume != 1 {
		t.Errorf("candle = %+v", got)
	}
	if len(a.Candles()) != 1 {
		t.Errorf("len = %d, want 1", len(a.Candles()))
	}

	// Lower price extends the low, volume accumulates.
	a.Ingest(98, 0.5, 30000)
	got = a.Last()
	if got.Low != 98 || got.Close != 98 || got.Volume != 1.5 || got.High != 105 {
		t.Errorf("candle = %+v", got)
	}
}

func TestIngestNextInterval(t *testing.T) {
	a := seedAggregator(t)
	a.Ingest(105, 1, 1000)

	if ev := a.Ingest(103, 2, 65000); ev != EventNew {
		t.Fatalf("event = %v, want EventNew", ev)
	}
	got := a.Last()
	if got.OpenTime != 61000 {
		t.Errorf("open time = %d, want 61000", got.OpenTime)
	}
	if got.Open != 103 || got.High != 103 || got.Low != 103 || got.Close != 103 || got.Volume != 2 {
		t.Errorf("candle = %+v", got)
	}
	if got.Source != SourceLive {
		t.Errorf("source = %s", got.Source)
	}
}

func TestIngestGapBackfill(t *testing.T) {
	a := seedAggregator(t)
	a.Ingest(105, 1, 1000)
	a.Ingest(103, 2, 65000)

	if ev := a.Ingest(110, 1, 250000); ev != EventNew {
		t.Fatalf("event = %v, want EventNew", ev)
	}

	candles := a.Candles()
	if len(candles) != 6 {
		t.Fatalf("len = %d, want 6", len(candles))
	}

	// Three flat candles carry the prior close across the gap.
	wantFlat := []int64{121000, 181000, 241000}
	for i, openTime := range wantFlat {
		c := candles[2+i]
		if c.OpenTime != openTime {
			t.Errorf("flat[%d] open time = %d, want %d", i, c.OpenTime, openTime)
		}
		if c.Open != 103 || c.High != 103 || c.Low != 103 || c.Close != 103 || c.Volume != 0 {
			t.Errorf("flat[%d] = %+v", i, c)
		}
		if c.Source != SourceBackfill {
			t.Errorf("flat[%d] source = %s", i, c.Source)
		}
	}

	live := candles[5]
	if live.OpenTime != 301000 {
		t.Errorf("live open time = %d, want 301000", live.OpenTime)
	}
	if live.Open != 110 || live.Close != 110 || live.Volume != 1 || live.Source != SourceLive {
		t.Errorf("live = %+v", live)
	}
}

func TestIngestAlignmentNeverMoves(t *testing.T) {
	a := seedAggregator(t)
	// Trade lands mid-interval of the next bucket; the new candle still opens
	// on the seeded boundary, not on the trade timestamp.
	a.Ingest(102, 1, 95000)
	if got := a.Last().OpenTime; got != 61000 {
		t.Errorf("open time = %d, want 61000", got)
	}
}

func TestIngestStaleWarning(t *testing.T) {
	a := seedAggregator(t)
	a.now = func() int64 { return 5000 }

	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	a.Ingest(101, 1, 2000) // 3000ms behind wall clock
	if !strings.Contains(buf.String(), "behind wall clock") {
		t.Errorf("expected staleness warning, got %q", buf.String())
	}

	buf.Reset()
	a.Ingest(101, 1, 4000) // 1000ms skew, below threshold
	if strings.Contains(buf.String(), "behind wall clock") {
		t.Errorf("unexpected staleness warning: %q", buf.String())
	}
}

func TestNewAggregatorPanics(t *testing.T) {
	assertPanics := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		fn()
	}
	assertPanics("empty seed", func() {
		NewAggregator("BTCUSDT", "1m", nil)
	})
	assertPanics("unknown timeframe", func() {
		NewAggregator("BTCUSDT", "7m", []Candle{{OpenTime: 0, Open: 1, High: 1, Low: 1, Close: 1}})
	})
}
