package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	RecurrenceNone RecurrenceType = "none"
	Weekly         RecurrenceType = "weekly"
	Monthly        RecurrenceType = "monthly"
	Yearly         RecurrenceType = "yearly"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentPix      PaymentMethod = "pix"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentOther    PaymentMethod = "other"
)

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

const maxDescriptionLen = 200

type (
	RecurrenceType  string
	TransactionType string
	Status          string
	PaymentMethod   string
	SyncStatus      string

	Money struct {
		Cents int64
	}

	// FinancialTransaction is one payable or receivable row. Occurrences of a
	// recurring series are independent rows pointing at the first one through
	// ParentTransactionID.
	FinancialTransaction struct {
		ID                  int64           `json:"id"`
		Type                TransactionType `json:"type"`
		Description         string          `json:"description"`
		Amount              Money           `json:"amount_cents"`
		Category            string          `json:"category"`
		PaymentMethod       PaymentMethod   `json:"payment_method"`
		SupplierID          *int64          `json:"supplier_id"`
		ClientID            string          `json:"client_id,omitempty"`
		Notes               string          `json:"notes,omitempty"`
		DueDate             Date            `json:"due_date"`
		PaymentDate         Date            `json:"payment_date"`
		Status              Status          `json:"status"`
		RecurrenceType      RecurrenceType  `json:"recurrence_type"`
		RecurrenceCount     int             `json:"recurrence_count"`
		RecurrenceEndDate   Date            `json:"recurrence_end_date"`
		RecurrenceDay       int             `json:"recurrence_day,omitempty"`
		ParentTransactionID *int64          `json:"parent_transaction_id"`
		IsAutoRecurring     bool            `json:"is_auto_recurring"`
		Version             int64           `json:"version"`
		SyncStatus          SyncStatus      `json:"sync_status"`
		CreatedAt           time.Time       `json:"created_at"`
		UpdatedAt           time.Time       `json:"updated_at"`
	}

	// RecurrencePolicy is the generation policy captured when a series is created.
	RecurrencePolicy struct {
		Type    RecurrenceType
		Count   int
		EndDate Date
		// AnchorDay is the day of month of the first occurrence.
		AnchorDay int
	}

	Supplier struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Document  string    `json:"document,omitempty"`
		Phone     string    `json:"phone,omitempty"`
		Email     string    `json:"email,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}
)

// MaxRecurrenceCount bounds a batch created in one request (ten years of weekly rows).
const MaxRecurrenceCount = 520

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrEmptyDescription        = errors.New("empty description")
	ErrDescriptionTooLong      = fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
	ErrInvalidType             = errors.New("invalid transaction type")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrInvalidRecurrence       = errors.New("invalid recurrence type")
	ErrInvalidRecurrenceCount  = errors.New("recurrence count cannot be negative")
	ErrRecurrenceCountTooLarge = fmt.Errorf("recurrence count too large (max %d)", MaxRecurrenceCount)
	ErrEndBeforeDue            = errors.New("recurrence end date must not be before due date")
	ErrAutoRecurringWithCount  = errors.New("auto recurrence cannot be combined with a fixed recurrence count")
	ErrMissingDueDate          = errors.New("due date is required")
	ErrEmptySupplierName       = errors.New("empty supplier name")
)

func (t TransactionType) Valid() bool {
	return t == Expense || t == Income
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentPix, PaymentTransfer, PaymentOther:
		return true
	}
	return false
}

func (r RecurrenceType) Valid() bool {
	switch r {
	case RecurrenceNone, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// IsRecurring reports whether r generates further occurrences.
func (r RecurrenceType) IsRecurring() bool {
	return r == Weekly || r == Monthly || r == Yearly
}

// IsRoot reports whether the transaction is the first row of its series (or a standalone row).
func (t FinancialTransaction) IsRoot() bool {
	return t.ParentTransactionID == nil
}

// SeriesID returns the id of the series root the transaction belongs to.
func (t FinancialTransaction) SeriesID() int64 {
	if t.ParentTransactionID != nil {
		return *t.ParentTransactionID
	}
	return t.ID
}

// Policy returns the recurrence policy stored on the transaction.
func (t FinancialTransaction) Policy() RecurrencePolicy {
	anchor := t.RecurrenceDay
	if anchor == 0 {
		anchor = t.DueDate.Day()
	}
	return RecurrencePolicy{
		Type:      t.RecurrenceType,
		Count:     t.RecurrenceCount,
		EndDate:   t.RecurrenceEndDate,
		AnchorDay: anchor,
	}
}

// Occurrence returns a copy of t due on date, reset to an unpaid, unsynced row of the series rooted at rootID.
func (t FinancialTransaction) Occurrence(rootID int64, due Date) FinancialTransaction {
	occ := t
	occ.ID = 0
	occ.DueDate = due
	occ.PaymentDate = Date{}
	occ.Status = StatusPending
	occ.ParentTransactionID = &rootID
	occ.IsAutoRecurring = false
	occ.Version = 1
	occ.SyncStatus = SyncPending
	occ.CreatedAt = time.Time{}
	occ.UpdatedAt = time.Time{}
	return occ
}

// Overdue reports whether the transaction is still pending after its due date.
func (t FinancialTransaction) Overdue(today Date) bool {
	return t.Status == StatusPending && t.DueDate.Before(today)
}

// Validate checks a transaction as submitted for creation or after an update.
func (t FinancialTransaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.DueDate.IsZero() {
		return ErrMissingDueDate
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if !t.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	if !t.RecurrenceType.Valid() {
		return ErrInvalidRecurrence
	}
	if t.RecurrenceCount < 0 {
		return ErrInvalidRecurrenceCount
	}
	if t.RecurrenceCount > MaxRecurrenceCount {
		return ErrRecurrenceCountTooLarge
	}
	if !t.RecurrenceEndDate.IsZero() && t.RecurrenceEndDate.Before(t.DueDate) && t.IsRoot() {
		return ErrEndBeforeDue
	}
	if t.IsAutoRecurring && t.RecurrenceCount > 0 {
		return ErrAutoRecurringWithCount
	}
	return nil
}

func (s Supplier) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptySupplierName
	}
	if len(s.Name) > maxDescriptionLen {
		return errors.New("supplier name too long")
	}
	return nil
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if len(desc) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}
