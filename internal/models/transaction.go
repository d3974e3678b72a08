package models

import "fmt"

// ValidationStatus grades a single transaction or a whole document.
type ValidationStatus string

const (
	StatusValid   ValidationStatus = "valid"
	StatusWarning ValidationStatus = "warning"
	StatusError   ValidationStatus = "error"
)

// ParsedTransaction is one statement row after extraction. Exactly one of
// Debit/Credit is non-nil; Balance is present only when the statement layout
// carries a running balance column.
type ParsedTransaction struct {
	Date              string           `json:"date"`
	Description       string           `json:"description"`
	Debit             *float64         `json:"debit"`
	Credit            *float64         `json:"credit"`
	Balance           *float64         `json:"balance,omitempty"`
	RowIndex          int              `json:"rowIndex"`
	ValidationStatus  ValidationStatus `json:"validationStatus"`
	ValidationMessage string           `json:"validationMessage,omitempty"`
	Notes             []string         `json:"notes,omitempty"`

	// SourceFile and FileIndex are set when transactions from several
	// documents are combined; zero values otherwise.
	SourceFile string `json:"sourceFile,omitempty"`
	FileIndex  int    `json:"fileIndex,omitempty"`
}

// TransactionAmount returns the signed amount of a transaction:
// negative for debits, positive for credits, zero when neither is set.
func TransactionAmount(t *ParsedTransaction) float64 {
	if t.Debit != nil {
		return -*t.Debit
	}
	if t.Credit != nil {
		return *t.Credit
	}
	return 0
}

// AddNote appends a human-readable annotation to the transaction.
func (t *ParsedTransaction) AddNote(format string, args ...interface{}) {
	t.Notes = append(t.Notes, fmt.Sprintf(format, args...))
}

// Float returns a pointer to v. Used when building transactions literally.
func Float(v float64) *float64 { return &v }
