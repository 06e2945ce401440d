package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"financeiro/internal/cache"
	"financeiro/internal/core"
	"financeiro/internal/storage"
)

// DashboardService builds month overviews. Results are cached per month and
// dropped wholesale on any write, since one series can touch many months.
type DashboardService struct {
	storage *storage.SQLiteRepository
	cache   cache.Cache[core.MonthOverview]
	now     func() time.Time
}

func NewDashboardService(storage *storage.SQLiteRepository, ttl time.Duration) *DashboardService {
	return &DashboardService{
		storage: storage,
		cache:   cache.NewTTLCache[core.MonthOverview](ttl),
		now:     time.Now,
	}
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Month returns the overview of the transactions due in year+month together
// with the supplier list.
func (s *DashboardService) Month(ctx context.Context, year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, fmt.Errorf("month %d out of range: %w", month, core.ErrInvalidDate)
	}

	key := monthKey(year, month)
	if ov, ok := s.cache.Get(key); ok {
		slog.DebugContext(ctx, "Dashboard cache hit", "year", year, "month", month)
		return ov, nil
	}

	var (
		txs       []core.FinancialTransaction
		suppliers []core.Supplier
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.storage.ListMonth(gctx, year, month)
		if err != nil {
			return fmt.Errorf("list month transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		suppliers, err = s.storage.ListSuppliers(gctx)
		if err != nil {
			return fmt.Errorf("list suppliers: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.MonthOverview{}, err
	}

	ov := core.Summarize(year, month, txs, core.DateOf(s.now()))
	ov.Suppliers = suppliers
	s.cache.Set(key, ov)

	slog.DebugContext(ctx, "Dashboard cached",
		"year", year,
		"month", month,
		"transactions", len(txs),
		"suppliers", len(suppliers),
		"cached_months", s.cache.Size())
	return ov, nil
}

// Invalidate drops every cached month.
func (s *DashboardService) Invalidate() {
	s.cache.Flush()
}
