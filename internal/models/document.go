package models

// StatementPeriod is the date range a segment covers, as printed on the
// statement. Either side may be empty when the statement doesn't say.
type StatementPeriod struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// DocumentSegment is a contiguous run of transactions bounded by an opening
// and closing balance block. Multi-segment documents come from statements
// that restart their balance columns across page breaks.
type DocumentSegment struct {
	OpeningBalance *float64            `json:"openingBalance,omitempty"`
	ClosingBalance *float64            `json:"closingBalance,omitempty"`
	Period         StatementPeriod     `json:"statementPeriod"`
	Transactions   []ParsedTransaction `json:"transactions"`
}

// ParsedDocument is the structured result of extracting one file. A merged
// document is a new ParsedDocument built from several inputs; the inputs are
// never mutated by merging.
type ParsedDocument struct {
	FileName            string            `json:"fileName"`
	TotalPages          int               `json:"totalPages"`
	DetectedLocale      string            `json:"detectedLocale,omitempty"`
	Segments            []DocumentSegment `json:"segments"`
	TotalTransactions   int               `json:"totalTransactions"`
	ValidTransactions   int               `json:"validTransactions"`
	ErrorTransactions   int               `json:"errorTransactions"`
	WarningTransactions int               `json:"warningTransactions"`
	OverallValidation   ValidationStatus  `json:"overallValidation"`
}

// Transactions returns pointers to every transaction across all segments,
// in segment order. Mutating the pointed-to values mutates the document.
func (d *ParsedDocument) Transactions() []*ParsedTransaction {
	var out []*ParsedTransaction
	for i := range d.Segments {
		seg := &d.Segments[i]
		for j := range seg.Transactions {
			out = append(out, &seg.Transactions[j])
		}
	}
	return out
}

// Recount refreshes the aggregate transaction counters and overall
// validation from the current per-transaction statuses. Needed after any
// operation that can change statuses, such as duplicate flagging.
func (d *ParsedDocument) Recount() {
	d.TotalTransactions = 0
	d.ValidTransactions = 0
	d.ErrorTransactions = 0
	d.WarningTransactions = 0
	for _, t := range d.Transactions() {
		d.TotalTransactions++
		switch t.ValidationStatus {
		case StatusError:
			d.ErrorTransactions++
		case StatusWarning:
			d.WarningTransactions++
		default:
			d.ValidTransactions++
		}
	}
	switch {
	case d.ErrorTransactions > 0:
		d.OverallValidation = StatusError
	case d.WarningTransactions > 0:
		d.OverallValidation = StatusWarning
	default:
		d.OverallValidation = StatusValid
	}
}

// DuplicateGroup is a set of combined-list transaction indices believed to be
// the same real-world transaction seen in more than one source file.
// Ephemeral: produced per merge, never persisted.
type DuplicateGroup struct {
	TransactionIndices []int    `json:"transactionIndices"`
	Confidence         float64  `json:"confidence"`
	Reason             string   `json:"reason"`
	SourceFiles        []string `json:"sourceFiles"`
}
