package profile

import (
	"fmt"
	"strings"
)

// MatchType describes how a detection result was reached.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchFuzzy    MatchType = "fuzzy"
	MatchFallback MatchType = "fallback"
)

// Score weights. Additive and capped rather than Bayesian: each match
// contributes a named, loggable reason and per-bank tuning happens through
// profile thresholds alone.
const (
	logoWeight       = 0.4
	identifierWeight = 0.3
	accountWeight    = 0.15
	currencyWeight   = 0.1
	exactThreshold   = 0.8
)

// DetectionResult is the outcome of scoring a document against the
// registry.
type DetectionResult struct {
	Profile    *BankProfile
	Confidence float64
	MatchType  MatchType
	// Reasons lists each scored contribution, for logs and diagnostics.
	Reasons []string
}

// Detect scores every non-generic profile against the document text plus
// the filename and returns the best candidate. A profile is a candidate
// only when its score clears its own ConfidenceThreshold; equal scores
// resolve to the lexicographically smaller profile id. When nothing
// qualifies the generic profile is returned with confidence 0.
func (r *Registry) Detect(text, fileName string) DetectionResult {
	haystack := strings.ToLower(text + " " + fileName)

	// One automaton pass finds every profile's keyword hits at once.
	logoHits := make(map[string]map[string]bool)
	identHits := make(map[string]map[string]bool)
	if r.matcher != nil {
		for _, idx := range r.matcher.Match([]byte(haystack)) {
			ref := r.refs[idx]
			switch ref.kind {
			case kindLogo:
				if logoHits[ref.profileID] == nil {
					logoHits[ref.profileID] = make(map[string]bool)
				}
				logoHits[ref.profileID][ref.keyword] = true
			case kindIdentifier:
				if identHits[ref.profileID] == nil {
					identHits[ref.profileID] = make(map[string]bool)
				}
				identHits[ref.profileID][ref.keyword] = true
			}
		}
	}

	var best *DetectionResult
	for _, id := range r.ids {
		p := r.profiles[id]
		score, reasons := scoreProfile(p, haystack, logoHits[id], identHits[id])
		if score < p.Identification.ConfidenceThreshold {
			continue
		}
		// ids iterate in sorted order, so strictly-greater keeps the
		// lexicographically smaller id on a tie.
		if best == nil || score > best.Confidence {
			best = &DetectionResult{Profile: p, Confidence: score, Reasons: reasons}
		}
	}

	if best == nil {
		return DetectionResult{Profile: r.generic, Confidence: 0, MatchType: MatchFallback}
	}
	if best.Confidence >= exactThreshold {
		best.MatchType = MatchExact
	} else {
		best.MatchType = MatchFuzzy
	}
	return *best
}

// scoreProfile computes one profile's additive match score in [0,1].
// Each distinct keyword counts once no matter how often it occurs.
func scoreProfile(p *BankProfile, haystack string, logos, idents map[string]bool) (float64, []string) {
	var score float64
	var reasons []string

	for kw := range logos {
		score += logoWeight
		reasons = append(reasons, fmt.Sprintf("logo keyword %q (+%.2g)", kw, logoWeight))
	}
	for ident := range idents {
		score += identifierWeight
		reasons = append(reasons, fmt.Sprintf("identifier %q (+%.2g)", ident, identifierWeight))
	}
	for _, pat := range p.Identification.AccountPatterns {
		if pat.MatchString(haystack) {
			score += accountWeight
			reasons = append(reasons, fmt.Sprintf("account pattern %q (+%.2g)", pat.Source, accountWeight))
		}
	}
	for _, sym := range p.Identification.CurrencySymbols {
		if strings.Contains(haystack, strings.ToLower(sym)) {
			score += currencyWeight
			reasons = append(reasons, fmt.Sprintf("currency symbol %q (+%.2g)", sym, currencyWeight))
			break
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, reasons
}
