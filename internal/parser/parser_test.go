package parser

import (
	"strings"
	"testing"

	"github.com/insightdelivered/statement-pipeline/internal/models"
	"github.com/insightdelivered/statement-pipeline/internal/profile"
)

// linePage builds one page of elements, one element per line, top to
// bottom in PDF coordinates.
func linePage(lines ...string) []models.TextElement {
	els := make([]models.TextElement, 0, len(lines))
	y := 800.0
	for _, line := range lines {
		els = append(els, models.TextElement{
			Text:       line,
			Bounds:     models.BoundingBox{X: 10, Y: y, Width: float64(len(line)) * 5, Height: 10},
			PageNumber: 1,
			Confidence: 1.0,
			Source:     models.SourceTextLayer,
		})
		y -= 20
	}
	return els
}

func TestProcessDocumentMetroStatement(t *testing.T) {
	pages := [][]models.TextElement{linePage(
		"Metro Bank Statement",
		"Account number 12345678 Sort code 12-34-56",
		"Opening balance £1,000.00",
		"15/01/2024 CARD PAYMENT TESCO 25.99 974.01",
		"16/01/2024 FASTER PAYMENT RECEIVED 500.00 1,474.01",
		"Closing balance £1,474.01",
	)}

	res := ProcessDocument("january.pdf", pages, Options{})
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Errors)
	}
	if res.Detection.Profile.ID != "metro-bank-uk" {
		t.Fatalf("detected %q, want metro-bank-uk", res.Detection.Profile.ID)
	}
	if res.Detection.MatchType != profile.MatchExact {
		t.Errorf("match type %q, want exact", res.Detection.MatchType)
	}

	doc := res.Document
	if len(doc.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(doc.Segments))
	}
	seg := doc.Segments[0]
	if seg.OpeningBalance == nil || *seg.OpeningBalance != 1000.00 {
		t.Errorf("opening balance: %v", seg.OpeningBalance)
	}
	if seg.ClosingBalance == nil || *seg.ClosingBalance != 1474.01 {
		t.Errorf("closing balance: %v", seg.ClosingBalance)
	}
	if doc.TotalTransactions != 2 {
		t.Fatalf("expected 2 transactions, got %d", doc.TotalTransactions)
	}

	first := seg.Transactions[0]
	if first.Debit == nil || *first.Debit != 25.99 {
		t.Errorf("first transaction should be a 25.99 debit: %+v", first)
	}
	second := seg.Transactions[1]
	if second.Credit == nil || *second.Credit != 500.00 {
		t.Errorf("second transaction should be a 500.00 credit: %+v", second)
	}

	for i, txn := range seg.Transactions {
		if txn.RowIndex != i {
			t.Errorf("transaction %d has rowIndex %d", i, txn.RowIndex)
		}
		if txn.ValidationStatus != models.StatusValid {
			t.Errorf("transaction %d: status %s (%s)", i, txn.ValidationStatus, txn.ValidationMessage)
		}
	}

	if res.Stats.BalanceChecks != 2 || res.Stats.BalanceErrors != 0 {
		t.Errorf("balance stats: %d checks, %d errors", res.Stats.BalanceChecks, res.Stats.BalanceErrors)
	}
	if res.Stats.DatesParsed != 2 {
		t.Errorf("dates parsed: %d", res.Stats.DatesParsed)
	}
}

func TestProcessDocumentBalanceMismatch(t *testing.T) {
	pages := [][]models.TextElement{linePage(
		"Metro Bank",
		"Opening balance £1,000.00",
		"15/01/2024 CARD PAYMENT TESCO 25.99 974.01",
		"16/01/2024 CARD PAYMENT ASDA 10.00 900.00",
	)}

	res := ProcessDocument("statement.pdf", pages, Options{})
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Errors)
	}
	txns := res.Document.Transactions()
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
	if txns[1].ValidationStatus != models.StatusWarning {
		t.Errorf("mismatching balance should warn, got %s", txns[1].ValidationStatus)
	}
	if res.Stats.BalanceErrors != 1 {
		t.Errorf("balance errors: %d, want 1", res.Stats.BalanceErrors)
	}
}

func TestProcessDocumentContinuationRows(t *testing.T) {
	pages := [][]models.TextElement{linePage(
		"Metro Bank",
		"15/01/2024 CARD PAYMENT 25.99 974.01",
		"TESCO STORES 2602 LONDON",
	)}

	res := ProcessDocument("statement.pdf", pages, Options{})
	txns := res.Document.Transactions()
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
	if !strings.Contains(txns[0].Description, "TESCO STORES") {
		t.Errorf("continuation row not appended: %q", txns[0].Description)
	}
}

func TestProcessDocumentFallsBackToGeneric(t *testing.T) {
	pages := [][]models.TextElement{linePage(
		"Some Credit Union Nobody Registered",
		"15/01/2024 PAYMENT RECEIVED 100.00 1,100.00",
	)}

	res := ProcessDocument("statement.pdf", pages, Options{})
	if !res.Success {
		t.Fatalf("unexpected failure: %v", res.Errors)
	}
	if res.Detection.MatchType != profile.MatchFallback {
		t.Errorf("match type %q, want fallback", res.Detection.MatchType)
	}
	if res.Stats.BankDetected {
		t.Error("fallback must not count as a detected bank")
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "generic") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a generic-rules warning, got %v", res.Warnings)
	}
}

func TestProcessDocumentForcedProfile(t *testing.T) {
	pages := [][]models.TextElement{linePage(
		"15/01/2024 CARD PAYMENT 25.99 974.01",
	)}

	res := ProcessDocument("statement.pdf", pages, Options{ProfileID: "hsbc-uk"})
	if res.Detection.Profile.ID != "hsbc-uk" {
		t.Errorf("forced profile ignored: %q", res.Detection.Profile.ID)
	}

	res = ProcessDocument("statement.pdf", pages, Options{ProfileID: "no-such-bank"})
	if res.Success || len(res.Errors) == 0 {
		t.Error("unknown forced profile must fail with an error")
	}
}

func TestProcessDocumentEmptyInput(t *testing.T) {
	res := ProcessDocument("empty.pdf", nil, Options{})
	if !res.Success {
		t.Fatalf("empty input must not fail: %v", res.Errors)
	}
	if res.Document.TotalTransactions != 0 {
		t.Errorf("expected 0 transactions, got %d", res.Document.TotalTransactions)
	}
}

func TestProcessDocumentArrowSeparatedRows(t *testing.T) {
	pages := [][]models.TextElement{linePage(
		"Barclays Bank PLC",
		"Start balance £9,456.68",
		"5 Dec → Direct Debit to Stripe → 58.80 → 9,397.88",
	)}

	res := ProcessDocument("business.pdf", pages, Options{})
	txns := res.Document.Transactions()
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
	if txns[0].Debit == nil || *txns[0].Debit != 58.80 {
		t.Errorf("arrow row should parse as a 58.80 debit: %+v", txns[0])
	}
}

func TestProcessDocumentLocaleOverride(t *testing.T) {
	pages := [][]models.TextElement{linePage(
		"Metro Bank Statement",
		"Opening balance £1,000.00",
		"15/01/2024 CARD PAYMENT 25.99 974.01",
	)}

	res := ProcessDocument("metro.pdf", pages, Options{LocaleDetection: true})
	if res.Document.DetectedLocale != "en-GB" {
		t.Fatalf("detection should tag en-GB from £, got %q", res.Document.DetectedLocale)
	}

	res = ProcessDocument("metro.pdf", pages, Options{LocaleDetection: true, Locale: "en-US"})
	if res.Document.DetectedLocale != "en-US" {
		t.Errorf("explicit locale must win over detection, got %q", res.Document.DetectedLocale)
	}

	res = ProcessDocument("metro.pdf", pages, Options{Locale: "en-IE"})
	if res.Document.DetectedLocale != "en-IE" {
		t.Errorf("explicit locale applies without detection, got %q", res.Document.DetectedLocale)
	}
}
