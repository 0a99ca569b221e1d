package main

import (
	"context"
	"testing"
	"time"

	"tokoservis/backend/internal/analytics"
	"tokoservis/backend/internal/cache"
	"tokoservis/backend/internal/service"
	"tokoservis/backend/internal/store/memory"
)

func TestParseRangeDefaultsToLastThirtyDays(t *testing.T) {
	from, to, err := parseRange(nil)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	if !to.After(from) {
		t.Fatalf("expected a forward range, got %s .. %s", from, to)
	}
	if days := to.Sub(from).Hours() / 24; days < 29.9 || days > 30.1 {
		t.Fatalf("expected a 30 day range, got %.1f days", days)
	}
}

func TestParseRangeRejectsBadDates(t *testing.T) {
	if _, _, err := parseRange([]string{"yesterday"}); err == nil {
		t.Fatalf("expected bad from date to be rejected")
	}
	if _, _, err := parseRange([]string{"2026-08-10", "2026-08-01"}); err == nil {
		t.Fatalf("expected inverted range to be rejected")
	}
}

func TestRunCommandRejectsUnknownCommand(t *testing.T) {
	repo := memory.NewSeeded()
	reports := analytics.New(repo, cache.NoopReportCache{}, time.Minute)
	svc := service.New(repo, reports, 5, 30)

	if _, err := runCommand(context.Background(), svc, "frobnicate", nil); err == nil {
		t.Fatalf("expected unknown command to be rejected")
	}
}
