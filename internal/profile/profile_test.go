package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile(id string, threshold float64) *BankProfile {
	return &BankProfile{
		ID:   id,
		Name: id,
		Identification: Identification{
			LogoKeywords:        []string{id + " logo"},
			UniqueIdentifiers:   []string{id + ".example.com"},
			AccountPatterns:     []Pattern{ukAccountPattern()},
			CurrencySymbols:     []string{"£"},
			ConfidenceThreshold: threshold,
		},
		Columns: ColumnConfig{Order: []string{"date", "description", "amount", "balance"}},
	}
}

func TestNewRegistryValidation(t *testing.T) {
	_, err := NewRegistry(MetroBank())
	assert.Error(t, err, "a registry without a generic fallback is invalid")

	_, err = NewRegistry(MetroBank(), MetroBank(), GenericProfile())
	assert.Error(t, err, "duplicate ids are rejected")

	_, err = NewRegistry(GenericProfile(), GenericProfile())
	assert.Error(t, err, "two generic profiles are rejected")

	r, err := NewRegistry(MetroBank(), GenericProfile())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Version())
}

func TestRegisterReturnsNewVersion(t *testing.T) {
	r, err := NewRegistry(MetroBank(), GenericProfile())
	require.NoError(t, err)

	next, err := r.Register(HSBC())
	require.NoError(t, err)
	assert.Equal(t, 2, next.Version())
	assert.Equal(t, []string{"hsbc-uk", "metro-bank-uk"}, next.IDs())

	// The original registry is untouched.
	assert.Equal(t, 1, r.Version())
	assert.Equal(t, []string{"metro-bank-uk"}, r.IDs())

	_, err = next.Register(HSBC())
	assert.Error(t, err, "re-registering an existing id is rejected")
}

func TestDetectExactMatch(t *testing.T) {
	r := DefaultRegistry()

	text := "Metro Bank Statement metrobankonline sort code 12-34-56 account 12345678 balance £100.00"
	res := r.Detect(text, "statement.pdf")

	assert.Equal(t, "metro-bank-uk", res.Profile.ID)
	assert.Equal(t, MatchExact, res.MatchType)
	assert.GreaterOrEqual(t, res.Confidence, 0.8)
	assert.NotEmpty(t, res.Reasons)
}

func TestDetectFuzzyBand(t *testing.T) {
	r := DefaultRegistry()

	// Logo keyword alone scores 0.4: above the profile threshold, below
	// the exact band.
	res := r.Detect("metro bank", "statement.pdf")
	assert.Equal(t, "metro-bank-uk", res.Profile.ID)
	assert.Equal(t, MatchFuzzy, res.MatchType)
	assert.InDelta(t, 0.4, res.Confidence, 1e-9)
}

func TestDetectFallback(t *testing.T) {
	r := DefaultRegistry()

	res := r.Detect("some credit union nobody registered", "statement.pdf")
	assert.Equal(t, MatchFallback, res.MatchType)
	assert.True(t, res.Profile.Generic)
	assert.Zero(t, res.Confidence)
}

func TestDetectUsesFileName(t *testing.T) {
	r := DefaultRegistry()

	res := r.Detect("no identifying text at all", "metro bank january.pdf")
	assert.Equal(t, "metro-bank-uk", res.Profile.ID)
}

func TestDetectRepeatedKeywordCountsOnce(t *testing.T) {
	r := DefaultRegistry()

	once := r.Detect("metro bank", "")
	thrice := r.Detect("metro bank metro bank metro bank", "")
	assert.Equal(t, once.Confidence, thrice.Confidence)
}

func TestDetectMoreSignalsNeverLowerScore(t *testing.T) {
	r := DefaultRegistry()

	base := r.Detect("metro bank", "")
	richer := r.Detect("metro bank metrobankonline £ 12-34-56", "")
	assert.Equal(t, "metro-bank-uk", richer.Profile.ID)
	assert.GreaterOrEqual(t, richer.Confidence, base.Confidence)
}

func TestDetectThresholdGates(t *testing.T) {
	strict := testProfile("strict-bank", 0.9)
	r, err := NewRegistry(strict, GenericProfile())
	require.NoError(t, err)

	// Logo plus currency scores 0.5, under the 0.9 threshold.
	res := r.Detect("strict-bank logo £", "")
	assert.Equal(t, MatchFallback, res.MatchType)

	// All signals clear it.
	res = r.Detect("strict-bank logo strict-bank.example.com £ acct 12345678", "")
	assert.Equal(t, "strict-bank", res.Profile.ID)
}

func TestDetectTieBreaksLexicographically(t *testing.T) {
	a := testProfile("aaa-bank", 0.3)
	b := testProfile("bbb-bank", 0.3)
	// Shared signals so both score identically.
	a.Identification.LogoKeywords = []string{"shared bank"}
	b.Identification.LogoKeywords = []string{"shared bank"}
	a.Identification.UniqueIdentifiers = nil
	b.Identification.UniqueIdentifiers = nil

	r, err := NewRegistry(b, a, GenericProfile())
	require.NoError(t, err)

	res := r.Detect("shared bank £", "")
	assert.Equal(t, "aaa-bank", res.Profile.ID)
}

func TestDetectScoreClamped(t *testing.T) {
	p := testProfile("busy-bank", 0.3)
	p.Identification.LogoKeywords = []string{"busy one", "busy two", "busy three"}
	r, err := NewRegistry(p, GenericProfile())
	require.NoError(t, err)

	res := r.Detect("busy one busy two busy three busy-bank.example.com £ 12345678", "")
	assert.LessOrEqual(t, res.Confidence, 1.0)
}

func TestRowPredicates(t *testing.T) {
	p := MetroBank()

	assert.True(t, p.ShouldSkipRow("Statement Period 1 Jan to 31 Jan"))
	assert.True(t, p.ShouldSkipRow("Account number 12345678"))
	assert.True(t, p.ShouldSkipRow("Page 2 of 4"))
	assert.False(t, p.ShouldSkipRow("15/01/2024 CARD PAYMENT 9.50 100.00"))

	assert.True(t, p.IsOpeningBalanceRow("Opening Balance £1,000.00"))
	assert.True(t, p.IsOpeningBalanceRow("Balance brought forward 500.00"))
	assert.False(t, p.IsOpeningBalanceRow("Closing balance £1.00"))

	assert.True(t, p.IsClosingBalanceRow("Closing Balance £1,474.01"))
	assert.True(t, p.IsClosingBalanceRow("Balance carried forward 500.00"))

	assert.True(t, p.IsContinuationRow("TESCO STORES LONDON"))
	assert.False(t, p.IsContinuationRow("15/01/2024 CARD PAYMENT"))
}

func TestHSBCSpreadHeaderSkipped(t *testing.T) {
	p := HSBC()
	assert.True(t, p.ShouldSkipRow("B a l a n c e"))
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{"barclays-uk", "hsbc-uk", "metro-bank-uk"}, r.IDs())
	assert.Equal(t, "generic", r.Generic().ID)

	for _, id := range r.IDs() {
		p, ok := r.Get(id)
		require.True(t, ok)
		assert.NotEmpty(t, p.Columns.Order)
		assert.NotEmpty(t, p.Rules.DateFormats)
		assert.False(t, p.Generic)
	}

	_, ok := r.Get("no-such-bank")
	assert.False(t, ok)
}
