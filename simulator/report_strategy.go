package main

import (
	"context"
	"math/rand"
	"time"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// ReportStrategy decides whether and when the device reports the applied
// position back on the status topic.
type ReportStrategy interface {
	Report(ctx context.Context, publish func())
}

// AutoReport reports after an optional fixed delay.
type AutoReport struct {
	Delay time.Duration
}

// Report implements ReportStrategy.
func (a AutoReport) Report(ctx context.Context, publish func()) {
	if !wait(ctx, a.Delay) {
		return
	}
	publish()
}

// RandomReport drops reports with the configured probability and waits for
// the configured delay before sending.
type RandomReport struct {
	Delay    time.Duration
	DropRate float64
}

// Report implements ReportStrategy.
func (r RandomReport) Report(ctx context.Context, publish func()) {
	if r.DropRate > 0 && rng.Float64() < r.DropRate {
		return
	}
	if !wait(ctx, r.Delay) {
		return
	}
	publish()
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
