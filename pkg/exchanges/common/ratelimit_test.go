package common

import (
	"testing"
	"time"
)

func TestUpdateFromHeader(t *testing.T) {
	rl := NewRateLimiter(2400, time.Minute)

	rl.UpdateFromHeader("150")
	if used, limit := rl.Usage(); used != 150 || limit != 2400 {
		t.Errorf("usage = %d/%d", used, limit)
	}

	// Empty and malformed headers are ignored.
	rl.UpdateFromHeader("")
	rl.UpdateFromHeader("not-a-number")
	if used, _ := rl.Usage(); used != 150 {
		t.Errorf("usage after bad headers = %d, want 150", used)
	}
}

func TestUsageResetsAfterInterval(t *testing.T) {
	rl := NewRateLimiter(2400, 10*time.Millisecond)
	rl.UpdateFromHeader("300")

	time.Sleep(20 * time.Millisecond)
	if used, _ := rl.Usage(); used != 0 {
		t.Errorf("usage = %d, want 0 after reset interval", used)
	}
}
