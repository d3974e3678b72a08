// Package parser turns positioned text elements into structured statement
// documents: it detects the bank format, reconstructs table rows, applies
// the format's parsing rules and validates the balance progression.
package parser

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-pipeline/internal/models"
	"github.com/insightdelivered/statement-pipeline/internal/profile"
)

// Options configures a document extraction run.
type Options struct {
	// Registry supplies the bank profiles; nil means the builtin set.
	Registry *profile.Registry
	// ProfileID skips detection and forces a registered profile.
	ProfileID string
	// LocaleDetection enables currency-based locale tagging.
	LocaleDetection bool
	// Locale pins the document locale and bypasses detection.
	Locale string
}

// Result is the outcome of processing one document. Malformed input never
// panics out of ProcessDocument; problems are reported in Errors.
type Result struct {
	Success   bool
	Document  *models.ParsedDocument
	Detection profile.DetectionResult
	Stats     models.PipelineStats
	Errors    []string
	Warnings  []string
}

// balanceEpsilon absorbs float rounding when checking the running balance.
const balanceEpsilon = 0.015

// Transaction line shapes, generalized over the date formats the builtin
// profiles use. Group layout: date, description, up to two optional
// amounts, final amount.
var (
	dateAlt = `(?:\d{1,2}/\d{1,2}/\d{2,4}|` +
		`\d{1,2}[\s-](?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[A-Za-z]*(?:[\s-]\d{2,4})?|` +
		`\d{4}-\d{2}-\d{2})`

	txnFullPattern = regexp.MustCompile(
		`(?i)^(` + dateAlt + `)\s+(.+?)\s+` +
			`£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})?\s+£?([\d,]+\.\d{2})\s*$`)

	txnSimplePattern = regexp.MustCompile(
		`(?i)^(` + dateAlt + `)\s+(.+?)\s+£?([\d,]+\.\d{2})\s*$`)
)

// ProcessDocument converts one file's text elements into a ParsedDocument.
// It is a pure function of its inputs: same elements and options, same
// result.
func ProcessDocument(fileName string, pages [][]models.TextElement, opts Options) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Result{Errors: []string{fmt.Sprintf("extraction panicked: %v", rec)}}
		}
	}()

	reg := opts.Registry
	if reg == nil {
		reg = profile.DefaultRegistry()
	}

	combined := combinedText(pages)

	var det profile.DetectionResult
	if opts.ProfileID != "" {
		p, ok := reg.Get(opts.ProfileID)
		if !ok {
			return Result{Errors: []string{fmt.Sprintf("unknown bank profile %q", opts.ProfileID)}}
		}
		det = profile.DetectionResult{Profile: p, Confidence: 1.0, MatchType: profile.MatchExact}
	} else {
		det = reg.Detect(combined, fileName)
	}

	res.Detection = det
	res.Stats.BankDetected = det.MatchType != profile.MatchFallback
	res.Stats.BankConfidence = det.Confidence
	res.Stats.ColumnsExpected = len(det.Profile.Columns.Order)
	if det.MatchType == profile.MatchFallback {
		res.Warnings = append(res.Warnings,
			"no bank format matched; using generic parsing rules")
	}

	rows := buildRows(pages)
	doc := parseRows(fileName, len(pages), rows, det.Profile, &res)
	if opts.Locale != "" {
		doc.DetectedLocale = opts.Locale
	} else if opts.LocaleDetection {
		doc.DetectedLocale = detectLocale(combined)
	}
	doc.Recount()

	res.Document = doc
	res.Success = true
	return res
}

// section tracks running state while rows are consumed in order.
type section struct {
	profile     *profile.BankProfile
	layouts     []string
	segments    []models.DocumentSegment
	cur         models.DocumentSegment
	curOpen     bool
	prevBalance float64
	hasPrev     bool
	seenDebit   bool
	seenCredit  bool
	seenBalance bool
}

func parseRows(fileName string, totalPages int, rows []Row, p *profile.BankProfile, res *Result) *models.ParsedDocument {
	layouts := p.Rules.DateFormats
	if len(layouts) == 0 {
		layouts = defaultDateLayouts
	}
	s := &section{profile: p, layouts: layouts}

	for _, row := range rows {
		line := normalizeLine(row.Text)
		if line == "" {
			continue
		}
		if row.FromOCR {
			line = sanitizeOCRLine(line)
		}
		// Arrow-separated business layouts read as plain columns once the
		// separators become whitespace.
		line = strings.TrimSpace(strings.ReplaceAll(line, "→", "  "))

		if p.IsOpeningBalanceRow(line) {
			s.startSegment(line)
			continue
		}
		if p.IsClosingBalanceRow(line) {
			s.closeSegment(line)
			continue
		}
		if p.ShouldSkipRow(line) {
			continue
		}

		if startsWithDate(line) {
			s.ensureSegment()
			if txn, ok := s.parseTransaction(line, res); ok {
				s.cur.Transactions = append(s.cur.Transactions, txn)
			}
			continue
		}

		// Continuation rows extend the previous transaction's description.
		if len(s.cur.Transactions) > 0 && p.IsContinuationRow(line) {
			last := &s.cur.Transactions[len(s.cur.Transactions)-1]
			last.Description += " " + line
		}
	}

	s.flush()

	doc := &models.ParsedDocument{
		FileName:   fileName,
		TotalPages: totalPages,
		Segments:   s.segments,
	}
	if from, to := extractPeriod(strings.Join(rowTexts(rows), "\n")); from != "" {
		for i := range doc.Segments {
			doc.Segments[i].Period = models.StatementPeriod{From: from, To: to}
		}
	}

	s.noteColumnStats(res)

	// RowIndex runs over the whole document in final order.
	for i, t := range doc.Transactions() {
		t.RowIndex = i
	}
	return doc
}

func (s *section) ensureSegment() {
	if !s.curOpen {
		s.cur = models.DocumentSegment{}
		s.curOpen = true
	}
}

// startSegment flushes the current segment and opens a new one at an
// opening-balance row, carrying that balance forward as the progression
// anchor.
func (s *section) startSegment(line string) {
	s.flush()
	s.cur = models.DocumentSegment{}
	s.curOpen = true
	if amounts := findAmounts(line); len(amounts) > 0 {
		if bal, err := parseAmount(amounts[len(amounts)-1]); err == nil {
			s.cur.OpeningBalance = models.Float(bal)
			s.prevBalance = bal
			s.hasPrev = true
		}
	}
}

func (s *section) closeSegment(line string) {
	if !s.curOpen {
		return
	}
	if amounts := findAmounts(line); len(amounts) > 0 {
		if bal, err := parseAmount(amounts[len(amounts)-1]); err == nil {
			s.cur.ClosingBalance = models.Float(bal)
		}
	}
	s.flush()
}

func (s *section) flush() {
	if !s.curOpen {
		return
	}
	if len(s.cur.Transactions) > 0 || s.cur.OpeningBalance != nil || s.cur.ClosingBalance != nil {
		s.segments = append(s.segments, s.cur)
	}
	s.cur = models.DocumentSegment{}
	s.curOpen = false
}

// parseTransaction applies the pattern cascade to one row: the full
// multi-column shape first, then the single-amount shape.
func (s *section) parseTransaction(line string, res *Result) (models.ParsedTransaction, bool) {
	res.Stats.DatesTotal++

	if m := txnFullPattern.FindStringSubmatch(line); m != nil {
		return s.buildTransaction(m[1], m[2], m[3], m[4], m[5], res), true
	}
	if m := txnSimplePattern.FindStringSubmatch(line); m != nil {
		return s.buildTransaction(m[1], m[2], m[3], "", "", res), true
	}

	res.Stats.AmountsTotal++
	return models.ParsedTransaction{}, false
}

// buildTransaction assembles a transaction from the matched cells. With
// both outgoing and incoming cells present the outgoing one is
// unambiguous; a single amount plus balance is classified by balance
// progression; a lone amount falls back to the description heuristic.
func (s *section) buildTransaction(date, desc, first, second, last string, res *Result) models.ParsedTransaction {
	txn := models.ParsedTransaction{
		Date:             strings.TrimSpace(date),
		Description:      strings.TrimSpace(desc),
		ValidationStatus: models.StatusValid,
	}
	if _, ok := parseDate(txn.Date, s.layouts); ok {
		res.Stats.DatesParsed++
	} else {
		txn.ValidationStatus = models.StatusWarning
		txn.ValidationMessage = fmt.Sprintf("unrecognized date format %q", txn.Date)
	}

	res.Stats.AmountsTotal++
	var balance *float64
	if last != "" {
		if bal, err := parseAmount(last); err == nil {
			balance = models.Float(bal)
		}
	}

	switch {
	case first != "" && second != "":
		// Distinct paid-out and paid-in cells.
		if out, err := parseAmount(first); err == nil {
			txn.Debit = models.Float(out)
			s.seenDebit = true
			res.Stats.AmountsParsed++
		}
		txn.Balance = balance
		if balance != nil {
			s.seenBalance = true
		}
	case first != "" || second != "":
		cell := first
		if cell == "" {
			cell = second
		}
		amt, err := parseAmount(cell)
		if err != nil {
			txn.ValidationStatus = models.StatusError
			txn.ValidationMessage = fmt.Sprintf("unparseable amount %q", cell)
			break
		}
		res.Stats.AmountsParsed++
		txn.Balance = balance
		if balance != nil {
			s.seenBalance = true
		}
		if s.isDebit(amt, balance, txn.Description) {
			txn.Debit = models.Float(amt)
			s.seenDebit = true
		} else {
			txn.Credit = models.Float(amt)
			s.seenCredit = true
		}
	case last != "":
		// Only one number on the row: it is the amount, not a balance.
		amt, err := parseAmount(last)
		if err != nil {
			txn.ValidationStatus = models.StatusError
			txn.ValidationMessage = fmt.Sprintf("unparseable amount %q", last)
			break
		}
		res.Stats.AmountsParsed++
		if isDebitDescription(txn.Description) {
			txn.Debit = models.Float(amt)
			s.seenDebit = true
		} else {
			txn.Credit = models.Float(amt)
			s.seenCredit = true
		}
	}

	s.checkBalance(&txn, res)
	return txn
}

// isDebit classifies a single-amount row. Balance progression decides when
// a previous balance is known; otherwise the description heuristic.
func (s *section) isDebit(amt float64, balance *float64, desc string) bool {
	if s.hasPrev && balance != nil {
		debitDiff := math.Abs((s.prevBalance - amt) - *balance)
		creditDiff := math.Abs((s.prevBalance + amt) - *balance)
		if debitDiff < balanceEpsilon && creditDiff >= balanceEpsilon {
			return true
		}
		if creditDiff < balanceEpsilon && debitDiff >= balanceEpsilon {
			return false
		}
		if debitDiff < balanceEpsilon && creditDiff < balanceEpsilon {
			return debitDiff <= creditDiff
		}
	}
	return isDebitDescription(desc)
}

// checkBalance validates the running balance against the previous row and
// advances the anchor.
func (s *section) checkBalance(txn *models.ParsedTransaction, res *Result) {
	if txn.Balance == nil {
		return
	}
	if s.hasPrev {
		res.Stats.BalanceChecks++
		expected := s.prevBalance + models.TransactionAmount(txn)
		if math.Abs(expected-*txn.Balance) > balanceEpsilon {
			res.Stats.BalanceErrors++
			if txn.ValidationStatus != models.StatusError {
				txn.ValidationStatus = models.StatusWarning
				txn.ValidationMessage = fmt.Sprintf(
					"balance %.2f does not follow from previous balance %.2f",
					*txn.Balance, s.prevBalance)
			}
		}
	}
	s.prevBalance = *txn.Balance
	s.hasPrev = true
}

// noteColumnStats derives how many of the expected columns were actually
// observed in the parsed rows.
func (s *section) noteColumnStats(res *Result) {
	detected := 0
	for _, col := range s.profile.Columns.Order {
		switch {
		case col == "date" || col == "description" || col == "details":
			detected++
		case strings.Contains(col, "out") && s.seenDebit:
			detected++
		case strings.Contains(col, "in") && s.seenCredit:
			detected++
		case col == "amount" && (s.seenDebit || s.seenCredit):
			detected++
		case col == "balance" && s.seenBalance:
			detected++
		}
	}
	res.Stats.ColumnsDetected = detected
	if res.Stats.ColumnsExpected > 0 && detected < res.Stats.ColumnsExpected {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"detected %d of %d expected columns", detected, res.Stats.ColumnsExpected))
	}
}

func combinedText(pages [][]models.TextElement) string {
	var b strings.Builder
	for _, page := range pages {
		for _, el := range page {
			b.WriteString(el.Text)
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func rowTexts(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Text
	}
	return out
}

// detectLocale infers a locale tag from currency symbols in the text.
func detectLocale(text string) string {
	switch {
	case strings.Contains(text, "£"):
		return "en-GB"
	case strings.Contains(text, "€"):
		return "en-IE"
	case strings.Contains(text, "$"):
		return "en-US"
	default:
		return ""
	}
}
