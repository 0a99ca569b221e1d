package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "")
	t.Setenv("ASSEMBLY_THRESHOLD", "")
	t.Setenv("NON_SELLING_DAYS", "")

	cfg := Load()
	if cfg.ReportCacheTTLSeconds != 60 {
		t.Fatalf("expected default report cache ttl 60, got %d", cfg.ReportCacheTTLSeconds)
	}
	if cfg.AssemblyThreshold != 5 {
		t.Fatalf("expected default assembly threshold 5, got %d", cfg.AssemblyThreshold)
	}
	if cfg.NonSellingDays != 30 {
		t.Fatalf("expected default non-selling window 30, got %d", cfg.NonSellingDays)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "-3")

	cfg := Load()
	if cfg.ReportCacheTTLSeconds != 60 {
		t.Fatalf("expected ttl fallback 60 on negative input, got %d", cfg.ReportCacheTTLSeconds)
	}
}
