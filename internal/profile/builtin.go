package profile

// Builtin profiles for the UK banks whose layouts are supported out of the
// box, plus the generic fallback. All are immutable values; callers get
// fresh pointers each time so no shared state leaks between registries.

// DefaultRegistry returns a registry pre-populated with the builtin
// profiles.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(MetroBank(), HSBC(), Barclays(), GenericProfile())
	if err != nil {
		// Builtin profiles are static; failure here is a programming error.
		panic(err)
	}
	return r
}

// MetroBank statements: Date | Transaction type | Description | Paid out |
// Paid in | Balance, dates DD/MM/YYYY.
func MetroBank() *BankProfile {
	return &BankProfile{
		ID:     "metro-bank-uk",
		Name:   "Metro Bank",
		Region: "UK",
		Identification: Identification{
			LogoKeywords:        []string{"metro bank"},
			UniqueIdentifiers:   []string{"metrobankonline", "metro bank plc"},
			AccountPatterns:     []Pattern{ukSortCodePattern(), ukAccountPattern()},
			CurrencySymbols:     []string{"£"},
			ConfidenceThreshold: 0.3,
		},
		Columns: ColumnConfig{
			Order:       []string{"date", "description", "paid-out", "paid-in", "balance"},
			BalanceLast: true,
		},
		Rules: SpecialRules{
			DateFormats:          []string{"02/01/2006", "02/01/06"},
			SkipPatterns:         ukSummaryPatterns(),
			OpeningBalanceRows:   openingBalancePatterns(),
			ClosingBalanceRows:   closingBalancePatterns(),
			ContinuationPatterns: []Pattern{MustPattern(`^\s*[A-Za-z(]`)},
			ThousandsSeparator:   ",",
			DecimalSeparator:     ".",
		},
	}
}

// HSBC statements: Date | Payment type and details | Paid out | Paid in |
// Balance, dates DD Mon YY. Headers often arrive with spread characters
// ("Pay m e nt t y pe"), which the skip patterns tolerate.
func HSBC() *BankProfile {
	return &BankProfile{
		ID:     "hsbc-uk",
		Name:   "HSBC",
		Region: "UK",
		Identification: Identification{
			LogoKeywords:        []string{"hsbc"},
			UniqueIdentifiers:   []string{"hsbc.co.uk", "hsbc uk bank"},
			AccountPatterns:     []Pattern{ukSortCodePattern(), ukAccountPattern()},
			CurrencySymbols:     []string{"£"},
			ConfidenceThreshold: 0.3,
		},
		Columns: ColumnConfig{
			Order:       []string{"date", "details", "paid-out", "paid-in", "balance"},
			BalanceLast: true,
		},
		Rules: SpecialRules{
			DateFormats:          []string{"2 Jan 06", "2 Jan 2006", "2-Jan-06", "02/01/2006"},
			SkipPatterns:         append(ukSummaryPatterns(), MustPattern(`(?i)^b\s*a\s*l\s*a\s*n\s*c\s*e`)),
			OpeningBalanceRows:   openingBalancePatterns(),
			ClosingBalanceRows:   closingBalancePatterns(),
			ContinuationPatterns: []Pattern{MustPattern(`^\s*[A-Za-z(]`)},
			ThousandsSeparator:   ",",
			DecimalSeparator:     ".",
		},
	}
}

// Barclays statements come in a standard layout (Date | Description |
// Money out | Money in | Balance) and an arrow-separated business layout
// with short dates ("5 Dec → Direct Debit to Stripe → 58.80 → 9,397.88").
func Barclays() *BankProfile {
	return &BankProfile{
		ID:     "barclays-uk",
		Name:   "Barclays",
		Region: "UK",
		Identification: Identification{
			LogoKeywords:        []string{"barclays"},
			UniqueIdentifiers:   []string{"barclays.co.uk", "barclays bank plc"},
			AccountPatterns:     []Pattern{ukSortCodePattern(), ukAccountPattern()},
			CurrencySymbols:     []string{"£"},
			ConfidenceThreshold: 0.3,
		},
		Columns: ColumnConfig{
			Order:       []string{"date", "description", "money-out", "money-in", "balance"},
			BalanceLast: true,
		},
		Rules: SpecialRules{
			DateFormats:          []string{"02/01/2006", "2 Jan 2006", "2 Jan"},
			SkipPatterns:         append(ukSummaryPatterns(), MustPattern(`(?i)anything wrong`)),
			OpeningBalanceRows:   append(openingBalancePatterns(), MustPattern(`(?i)start balance`)),
			ClosingBalanceRows:   append(closingBalancePatterns(), MustPattern(`(?i)end balance`)),
			ContinuationPatterns: []Pattern{MustPattern(`^\s*[A-Za-z(]`)},
			ThousandsSeparator:   ",",
			DecimalSeparator:     ".",
		},
	}
}

// GenericProfile is the fallback used when nothing clears its detection
// threshold. It carries the common UK row rules and no signature.
func GenericProfile() *BankProfile {
	return &BankProfile{
		ID:      "generic",
		Name:    "Generic",
		Region:  "",
		Generic: true,
		Identification: Identification{
			ConfidenceThreshold: 1.1, // unreachable on purpose
		},
		Columns: ColumnConfig{
			Order:       []string{"date", "description", "amount", "balance"},
			BalanceLast: true,
		},
		Rules: SpecialRules{
			DateFormats: []string{
				"02/01/2006", "02/01/06", "2 Jan 2006", "2 Jan 06",
				"2-Jan-2006", "2-Jan-06", "2006-01-02",
			},
			SkipPatterns:         ukSummaryPatterns(),
			OpeningBalanceRows:   openingBalancePatterns(),
			ClosingBalanceRows:   closingBalancePatterns(),
			ContinuationPatterns: []Pattern{MustPattern(`^\s*[A-Za-z(]`)},
			ThousandsSeparator:   ",",
			DecimalSeparator:     ".",
		},
	}
}

func ukSortCodePattern() Pattern {
	return MustPattern(`\b\d{2}-\d{2}-\d{2}\b`)
}

func ukAccountPattern() Pattern {
	return MustPattern(`\b\d{8}\b`)
}

func ukSummaryPatterns() []Pattern {
	return []Pattern{
		MustPattern(`(?i)statement period`),
		MustPattern(`(?i)total (paid in|paid out|payments|receipts)`),
		MustPattern(`(?i)^page \d+`),
		MustPattern(`(?i)\bcontinued\b`),
		MustPattern(`(?i)^date\b.*(description|details|transaction|paid|money)`),
		MustPattern(`(?i)sort code`),
		MustPattern(`(?i)account (number|holder|name)`),
	}
}

func openingBalancePatterns() []Pattern {
	return []Pattern{
		MustPattern(`(?i)opening balance`),
		MustPattern(`(?i)balance brought forward`),
		MustPattern(`(?i)brought forward`),
	}
}

func closingBalancePatterns() []Pattern {
	return []Pattern{
		MustPattern(`(?i)closing balance`),
		MustPattern(`(?i)balance carried forward`),
		MustPattern(`(?i)carried forward`),
	}
}
