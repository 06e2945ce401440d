package google

import (
	"context"
	"testing"

	"financeiro/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), "  ", "Ledger"); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Run("inline json wins", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/does/not/exist.json")
		b, err := loadCredentials()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != `{"type":"service_account"}` {
			t.Errorf("got %s", b)
		}
	})

	t.Run("missing everything", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
		if _, err := loadCredentials(); err == nil {
			t.Fatal("expected error without credentials")
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/does/not/exist.json")
		if _, err := loadCredentials(); err == nil {
			t.Fatal("expected error for unreadable file")
		}
	})
}

func TestLedgerRow(t *testing.T) {
	parent := int64(10)
	supplier := int64(3)
	tx := core.FinancialTransaction{
		ID:                  12,
		Type:                core.Expense,
		Description:         "Laundry",
		Amount:              core.Money{Cents: 12345},
		Category:            "services",
		PaymentMethod:       core.PaymentPix,
		DueDate:             core.NewDate(2024, 2, 29),
		Status:              core.StatusPending,
		RecurrenceType:      core.Monthly,
		ParentTransactionID: &parent,
		SupplierID:          &supplier,
		Version:             2,
	}

	row := ledgerRow(tx)
	if len(row) != len(ledgerHeader) {
		t.Fatalf("row has %d columns, header %d", len(row), len(ledgerHeader))
	}
	checks := map[int]any{0: "12", 2: "2024-02-29", 4: "-123.45", 8: "", 9: "10", 10: "3", 11: int64(2)}
	for col, want := range checks {
		if row[col] != want {
			t.Errorf("column %d = %v, want %v", col, row[col], want)
		}
	}

	root := tx
	root.ID = 10
	root.ParentTransactionID = nil
	root.Type = core.Income
	row = ledgerRow(root)
	if row[9] != "10" {
		t.Errorf("root series column = %v, want its own id", row[9])
	}
	if row[4] != "123.45" {
		t.Errorf("income amount = %v, want positive", row[4])
	}
}

func TestFindRow(t *testing.T) {
	ids := []string{"ID", "4", " 9 ", "", "12"}
	tests := []struct {
		id   int64
		want int
	}{
		{4, 2},
		{9, 3},
		{12, 5},
		{99, 0},
	}
	for _, tt := range tests {
		if got := findRow(ids, tt.id); got != tt.want {
			t.Errorf("findRow(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}
