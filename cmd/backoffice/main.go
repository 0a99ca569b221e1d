package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"tokoservis/backend/internal/analytics"
	"tokoservis/backend/internal/cache"
	"tokoservis/backend/internal/config"
	"tokoservis/backend/internal/domain"
	"tokoservis/backend/internal/service"
	"tokoservis/backend/internal/store"
	"tokoservis/backend/internal/store/memory"
	pgstore "tokoservis/backend/internal/store/postgres"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to fall back to in-memory data", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	reportCache := cache.ReportCache(cache.NoopReportCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			reportCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	}

	reports := analytics.New(repo, reportCache, time.Duration(cfg.ReportCacheTTLSeconds)*time.Second)
	svc := service.New(repo, reports, cfg.AssemblyThreshold, cfg.NonSellingDays)

	// Batch runs act as the back-office operator.
	ctx = service.WithActor(ctx, domain.Actor{Username: "backoffice", Role: domain.RoleAdmin})

	result, err := runCommand(ctx, svc, os.Args[1], os.Args[2:])
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		log.Fatalf("encode output: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}
}

func runCommand(ctx context.Context, svc *service.Service, command string, args []string) (any, error) {
	from, to, err := parseRange(args)
	if err != nil {
		return nil, err
	}

	switch command {
	case "sales-daily":
		return svc.SalesByPeriod(ctx, analytics.GranularityDay, from, to)
	case "sales-weekly":
		return svc.SalesByPeriod(ctx, analytics.GranularityWeek, from, to)
	case "sales-monthly":
		return svc.SalesByPeriod(ctx, analytics.GranularityMonth, from, to)
	case "top-products":
		return svc.TopSellingProducts(ctx, from, to, 10)
	case "sales-by-category":
		return svc.SalesByCategory(ctx, from, to)
	case "payment-methods":
		return svc.SalesByPaymentMethod(ctx, from, to)
	case "expenses-by-category":
		return svc.ExpensesByCategory(ctx, from, to)
	case "inventory-value":
		return svc.InventoryValueByCategory(ctx)
	case "profit":
		return svc.ProfitAnalysis(ctx, from, to)
	case "low-stock":
		return svc.LowStock(ctx)
	case "critical-stock":
		return svc.CriticalStock(ctx)
	case "needing-assembly":
		return svc.NeedingAssembly(ctx)
	case "non-selling":
		return svc.NonSelling(ctx, 50)
	case "pending-repairs":
		return svc.PendingRepairJobs(ctx)
	case "recent-sales":
		return svc.RecentSales(ctx, 20)
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

// parseRange reads optional "from" and "to" arguments in 2006-01-02 form.
// With no arguments the range covers the last 30 days. The "to" date is
// inclusive: the range ends at the start of the following day.
func parseRange(args []string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if len(args) > 0 {
		parsed, err := time.Parse("2006-01-02", args[0])
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad from date %q: %w", args[0], err)
		}
		from = parsed
	}
	if len(args) > 1 {
		parsed, err := time.Parse("2006-01-02", args[1])
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad to date %q: %w", args[1], err)
		}
		to = parsed.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("empty date range")
	}
	return from, to, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: backoffice <command> [from] [to]

commands:
  sales-daily | sales-weekly | sales-monthly
  top-products | sales-by-category | payment-methods
  expenses-by-category | inventory-value | profit
  low-stock | critical-stock | needing-assembly | non-selling
  pending-repairs | recent-sales

dates are YYYY-MM-DD; the default range is the last 30 days`)
}
