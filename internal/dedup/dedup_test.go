package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-pipeline/internal/models"
)

func debitTxn(date, desc string, amount float64) *models.ParsedTransaction {
	return &models.ParsedTransaction{
		Date:             date,
		Description:      desc,
		Debit:            models.Float(amount),
		ValidationStatus: models.StatusValid,
	}
}

func creditTxn(date, desc string, amount float64) *models.ParsedTransaction {
	return &models.ParsedTransaction{
		Date:             date,
		Description:      desc,
		Credit:           models.Float(amount),
		ValidationStatus: models.StatusValid,
	}
}

func entry(idx, fileIdx int, file string, txn *models.ParsedTransaction) Entry {
	return Entry{Index: idx, FileIndex: fileIdx, SourceFile: file, Txn: txn}
}

func TestDetectFlagsCrossFileMatch(t *testing.T) {
	entries := []Entry{
		entry(0, 0, "jan.pdf", debitTxn("15/01/2024", "Coffee Shop", 4.50)),
		entry(1, 1, "jan-copy.pdf", debitTxn("15/01/2024", "Coffee Shop Inc", 4.50)),
	}

	report := Detect(entries, DefaultOptions())
	require.Len(t, report.Groups, 1)

	group := report.Groups[0]
	assert.Equal(t, []int{0, 1}, group.TransactionIndices)
	assert.Equal(t, []string{"jan.pdf", "jan-copy.pdf"}, group.SourceFiles)
	assert.Greater(t, group.Confidence, 0.7)
	assert.Equal(t, 2, report.TotalFlagged)
	assert.NotEmpty(t, report.Warnings)
}

func TestDetectIgnoresSameFilePairs(t *testing.T) {
	entries := []Entry{
		entry(0, 0, "jan.pdf", debitTxn("15/01/2024", "Coffee Shop", 4.50)),
		entry(1, 0, "jan.pdf", debitTxn("15/01/2024", "Coffee Shop", 4.50)),
	}

	report := Detect(entries, DefaultOptions())
	assert.Empty(t, report.Groups, "recurring charges within one file are not duplicates")
}

func TestDetectDateToleranceGate(t *testing.T) {
	opts := DefaultOptions()

	near := []Entry{
		entry(0, 0, "a.pdf", debitTxn("15/01/2024", "Coffee Shop", 4.50)),
		entry(1, 1, "b.pdf", debitTxn("16/01/2024", "Coffee Shop", 4.50)),
	}
	report := Detect(near, opts)
	require.Len(t, report.Groups, 1)
	// One day of drift halves the date component.
	assert.InDelta(t, 0.3*0.5+0.4+0.3, report.Groups[0].Confidence, 1e-9)

	far := []Entry{
		entry(0, 0, "a.pdf", debitTxn("15/01/2024", "Coffee Shop", 4.50)),
		entry(1, 1, "b.pdf", debitTxn("18/01/2024", "Coffee Shop", 4.50)),
	}
	assert.Empty(t, Detect(far, opts).Groups)
}

func TestDetectUnparseableDateDisqualifies(t *testing.T) {
	entries := []Entry{
		entry(0, 0, "a.pdf", debitTxn("not a date", "Coffee Shop", 4.50)),
		entry(1, 1, "b.pdf", debitTxn("not a date", "Coffee Shop", 4.50)),
	}
	assert.Empty(t, Detect(entries, DefaultOptions()).Groups)
}

func TestDetectSignedAmountGate(t *testing.T) {
	entries := []Entry{
		entry(0, 0, "a.pdf", debitTxn("15/01/2024", "Refund Coffee Shop", 4.50)),
		entry(1, 1, "b.pdf", creditTxn("15/01/2024", "Refund Coffee Shop", 4.50)),
	}
	report := Detect(entries, DefaultOptions())
	assert.Empty(t, report.Groups, "a debit never pairs with a credit of the same magnitude")
}

func TestDetectAmountToleranceFractional(t *testing.T) {
	opts := DefaultOptions()
	opts.RequireExactAmount = false
	opts.AmountTolerance = 0.1

	entries := []Entry{
		entry(0, 0, "a.pdf", debitTxn("15/01/2024", "Gym Membership", 100.00)),
		entry(1, 1, "b.pdf", debitTxn("15/01/2024", "Gym Membership", 105.00)),
	}
	report := Detect(entries, opts)
	require.Len(t, report.Groups, 1)

	// Still gated when the drift exceeds the fraction.
	entries[1].Txn = debitTxn("15/01/2024", "Gym Membership", 120.00)
	assert.Empty(t, Detect(entries, opts).Groups)
}

func TestDetectTransitiveGrouping(t *testing.T) {
	entries := []Entry{
		entry(0, 0, "a.pdf", debitTxn("15/01/2024", "Coffee Shop", 4.50)),
		entry(1, 1, "b.pdf", debitTxn("15/01/2024", "Coffee Shop", 4.50)),
		entry(2, 2, "c.pdf", debitTxn("15/01/2024", "Coffee Shop", 4.50)),
	}

	report := Detect(entries, DefaultOptions())
	require.Len(t, report.Groups, 1, "pairwise matches over three files collapse into one group")
	assert.Equal(t, []int{0, 1, 2}, report.Groups[0].TransactionIndices)
	assert.Equal(t, 3, report.TotalFlagged)
}

func TestComparePairSymmetry(t *testing.T) {
	a := entry(0, 0, "a.pdf", debitTxn("15/01/2024", "Coffee Shop", 4.50))
	b := entry(1, 1, "b.pdf", debitTxn("16/01/2024", "Coffee Shop Inc", 4.50))

	confAB, okAB := comparePair(a, b, DefaultOptions())
	confBA, okBA := comparePair(b, a, DefaultOptions())
	assert.Equal(t, okAB, okBA)
	assert.InDelta(t, confAB, confBA, 1e-12)
}

func TestFlagDuplicates(t *testing.T) {
	bad := debitTxn("15/01/2024", "Coffee Shop", 4.50)
	bad.ValidationStatus = models.StatusError
	bad.ValidationMessage = "unparseable amount"

	entries := []Entry{
		entry(0, 0, "a.pdf", debitTxn("15/01/2024", "Coffee Shop", 4.50)),
		entry(1, 1, "b.pdf", bad),
	}

	report := Detect(entries, DefaultOptions())
	require.Len(t, report.Groups, 1)
	FlagDuplicates(entries, report)

	assert.Equal(t, models.StatusWarning, entries[0].Txn.ValidationStatus)
	assert.Equal(t, models.StatusError, entries[1].Txn.ValidationStatus,
		"flagging never hides a harder failure")
	for _, e := range entries {
		require.Len(t, e.Txn.Notes, 1)
		assert.Contains(t, e.Txn.Notes[0], "possible duplicate across files")
	}
}

func TestDescriptionSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Coffee Shop", "Coffee Shop", 1.0},
		{"suffix contained", "Coffee Shop", "Coffee Shop Inc", 1.0},
		{"punctuation ignored", "COFFEE-SHOP*LONDON", "coffee shop london", 1.0},
		{"disjoint", "Coffee Shop", "Petrol Station", 0.0},
		{"partial overlap", "Tesco Store London", "Tesco Store Leeds", 2.0 / 3.0},
		{"both empty", "", "", 1.0},
		{"one empty", "Coffee", "", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, descriptionSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestDescriptionSimilarityShortWordsFallBackToEditDistance(t *testing.T) {
	// No word longer than two characters on either side, so word sets carry
	// no signal and edit distance takes over.
	got := descriptionSimilarity("ab cd", "ab ce")
	assert.InDelta(t, 1.0-1.0/5.0, got, 1e-9)
}

func TestParseTransactionDate(t *testing.T) {
	for _, s := range []string{"15/01/2024", "2 Jan 2024", "2024-01-15", "2-Jan-24"} {
		_, ok := ParseTransactionDate(s)
		assert.True(t, ok, s)
	}
	_, ok := ParseTransactionDate("yesterday")
	assert.False(t, ok)
}
