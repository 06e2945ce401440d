package services

import (
	"context"
	"sync"
	"testing"

	"financeiro/internal/core"
	"financeiro/internal/recurrence"
)

func createAuto(t *testing.T, svc *TransactionService, typ core.RecurrenceType, first, end core.Date) core.FinancialTransaction {
	t.Helper()
	tx := sampleExpense(first)
	tx.RecurrenceType = typ
	tx.RecurrenceEndDate = end
	rows, err := svc.Create(context.Background(), tx)
	if err != nil {
		t.Fatalf("create auto series: %v", err)
	}
	return rows[0]
}

func TestNewRecurringProcessor_DefaultMonthsAhead(t *testing.T) {
	p := NewRecurringProcessor(nil, nil, 0)
	if p.monthsAhead != recurrence.DefaultMonthsAhead {
		t.Errorf("monthsAhead = %d, want %d", p.monthsAhead, recurrence.DefaultMonthsAhead)
	}
	if _, err := p.ProcessAutoRecurring(context.Background(), core.NewDate(2024, 1, 1)); err == nil {
		t.Error("expected error without storage")
	}
}

func TestProcessAutoRecurring_ExtendsToHorizon(t *testing.T) {
	ctx := context.Background()
	repo := newTestStorage(t)
	pub := &recordingPublisher{}
	svc := NewTransactionService(repo, pub)
	p := NewRecurringProcessor(repo, svc, 2)
	root := createAuto(t, svc, core.Monthly, core.NewDate(2024, 1, 31), core.Date{})

	res, err := p.ProcessAutoRecurring(ctx, core.NewDate(2024, 1, 31))
	if err != nil {
		t.Fatal(err)
	}
	if res.Series != 1 || res.Created != 1 {
		t.Errorf("result = %+v, want 1 series and 1 created", res)
	}

	res, err = p.ProcessAutoRecurring(ctx, core.NewDate(2024, 5, 15))
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 3 {
		t.Errorf("created %d, want 3", res.Created)
	}

	series, _ := svc.Series(ctx, root.ID)
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31", "2024-06-30"}
	if got := dueDates(series); !equalStrings(got, want) {
		t.Errorf("due dates = %v, want %v", got, want)
	}
	// 2 rows at creation + 4 from the sweeps
	if len(pub.synced) != 6 {
		t.Errorf("published %d sync messages, want 6", len(pub.synced))
	}
}

func TestProcessAutoRecurring_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestStorage(t)
	svc := NewTransactionService(repo, nil)
	p := NewRecurringProcessor(repo, svc, 2)
	root := createAuto(t, svc, core.Weekly, core.NewDate(2024, 1, 1), core.Date{})
	today := core.NewDate(2024, 1, 1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.ProcessAutoRecurring(ctx, today); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if _, err := p.ProcessAutoRecurring(ctx, today); err != nil {
		t.Fatal(err)
	}

	series, _ := svc.Series(ctx, root.ID)
	// 2024-01-01 through 2024-02-26: every Monday up to the 2024-03-01 horizon
	if len(series) != 9 {
		t.Errorf("series has %d rows, want 9: %v", len(series), dueDates(series))
	}
	seen := map[string]bool{}
	for _, r := range series {
		if seen[r.DueDate.String()] {
			t.Errorf("duplicate occurrence on %s", r.DueDate)
		}
		seen[r.DueDate.String()] = true
	}
}

func TestProcessAutoRecurring_StopsAtEndDate(t *testing.T) {
	ctx := context.Background()
	repo := newTestStorage(t)
	svc := NewTransactionService(repo, nil)
	p := NewRecurringProcessor(repo, svc, 2)
	root := createAuto(t, svc, core.Weekly, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 20))

	res, err := p.ProcessAutoRecurring(ctx, core.NewDate(2024, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 1 || res.Stopped != 1 {
		t.Errorf("result = %+v, want 1 created and 1 stopped", res)
	}

	stored, _ := svc.Get(ctx, root.ID)
	if stored.IsAutoRecurring {
		t.Error("finished series should no longer be auto recurring")
	}
	series, _ := svc.Series(ctx, root.ID)
	if got := dueDates(series); !equalStrings(got, []string{"2024-01-01", "2024-01-08", "2024-01-15"}) {
		t.Errorf("due dates = %v", got)
	}

	res, _ = p.ProcessAutoRecurring(ctx, core.NewDate(2024, 6, 1))
	if res.Series != 0 {
		t.Errorf("stopped series swept again: %+v", res)
	}
}

func TestProcessAutoRecurring_FallbackCap(t *testing.T) {
	ctx := context.Background()
	repo := newTestStorage(t)
	svc := NewTransactionService(repo, nil)
	p := NewRecurringProcessor(repo, svc, 2)
	root := createAuto(t, svc, core.Weekly, core.NewDate(2024, 1, 1), core.Date{})

	res, err := p.ProcessAutoRecurring(ctx, core.NewDate(2030, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if res.Stopped != 1 {
		t.Errorf("result = %+v, want the series stopped at the cap", res)
	}
	series, _ := svc.Series(ctx, root.ID)
	if len(series) != recurrence.FallbackHorizon {
		t.Errorf("series has %d rows, want %d", len(series), recurrence.FallbackHorizon)
	}
}

func TestProcessAutoRecurring_EndDateOutlivesFallback(t *testing.T) {
	ctx := context.Background()
	repo := newTestStorage(t)
	svc := NewTransactionService(repo, nil)
	p := NewRecurringProcessor(repo, svc, 2)
	root := createAuto(t, svc, core.Weekly, core.NewDate(2024, 1, 1), core.NewDate(2025, 12, 31))

	// monthly sweeps across the whole series
	for today := core.NewDate(2024, 1, 1); today.Before(core.NewDate(2026, 7, 1)); today = today.AddMonths(1) {
		if _, err := p.ProcessAutoRecurring(ctx, today); err != nil {
			t.Fatal(err)
		}
	}

	series, _ := svc.Series(ctx, root.ID)
	if len(series) != 105 {
		t.Fatalf("series has %d rows, want 105", len(series))
	}
	if last := series[len(series)-1].DueDate; !last.Equal(core.NewDate(2025, 12, 29)) {
		t.Errorf("last due date = %s, want 2025-12-29", last)
	}
	got, _ := svc.Get(ctx, root.ID)
	if got.IsAutoRecurring {
		t.Error("series past its end date still auto-recurring")
	}
}

func TestProcessAutoRecurring_SkipsStoppedSeries(t *testing.T) {
	ctx := context.Background()
	repo := newTestStorage(t)
	svc := NewTransactionService(repo, nil)
	p := NewRecurringProcessor(repo, svc, 2)
	root := createAuto(t, svc, core.Monthly, core.NewDate(2024, 1, 10), core.Date{})

	if _, err := svc.StopRecurrence(ctx, root.ID); err != nil {
		t.Fatal(err)
	}
	res, err := p.ProcessAutoRecurring(ctx, core.NewDate(2024, 6, 1))
	if err != nil {
		t.Fatal(err)
	}
	if res.Series != 0 || res.Created != 0 {
		t.Errorf("result = %+v, want nothing processed", res)
	}
}
