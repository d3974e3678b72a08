// Package confidence turns per-stage success counts into one graded
// quality signal. The grade is diagnostic only: it never gates pipeline
// success, it exists so a consumer can decide whether to trust a result or
// send it for manual review.
package confidence

import (
	"fmt"
	"math"

	"github.com/insightdelivered/statement-pipeline/internal/models"
)

// Stage weights. Balance validation dominates because a reconciling
// balance column is the strongest end-to-end correctness signal a
// statement offers.
const (
	weightBank    = 0.10
	weightColumns = 0.20
	weightDates   = 0.15
	weightAmounts = 0.25
	weightBalance = 0.30

	// When OCR ran, its average word confidence blends in at one tenth.
	ocrBlend = 0.10
)

// Builder accumulates stage scores and finalizes them into a
// PipelineConfidence. Finalize once; the result is immutable after.
type Builder struct {
	stages          []models.StageConfidence
	metrics         map[string]float64
	flags           []string
	recommendations []string
	ocrUsed         bool
	ocrConfidence   float64
}

func NewBuilder() *Builder {
	return &Builder{metrics: make(map[string]float64)}
}

// FromStats populates every stage from the pipeline's counters.
func (b *Builder) FromStats(stats models.PipelineStats) *Builder {
	b.addBankDetection(stats)
	b.addColumnDetection(stats)
	b.addRatioStage("date extraction", weightDates, stats.DatesParsed, stats.DatesTotal)
	b.addRatioStage("amount extraction", weightAmounts, stats.AmountsParsed, stats.AmountsTotal)
	b.addBalanceValidation(stats)
	if stats.OCRUsed {
		b.WithOCR(stats.OCRConfidence)
	}
	return b
}

func (b *Builder) addBankDetection(stats models.PipelineStats) {
	score := 0
	if stats.BankDetected {
		score = int(math.Round(stats.BankConfidence * 100))
		if score > 100 {
			score = 100
		}
	} else {
		b.flags = append(b.flags, "bank format not recognized")
		b.recommendations = append(b.recommendations,
			"verify the statement against the generic parsing output")
	}
	b.metrics["bankConfidence"] = stats.BankConfidence
	b.stages = append(b.stages, models.StageConfidence{
		Name: "bank detection", Score: score, Weight: weightBank,
	})
}

func (b *Builder) addColumnDetection(stats models.PipelineStats) {
	score := 100
	if stats.ColumnsExpected > 0 {
		score = ratioScore(stats.ColumnsDetected, stats.ColumnsExpected)
		if stats.ColumnsDetected < stats.ColumnsExpected {
			b.flags = append(b.flags, fmt.Sprintf(
				"only %d of %d expected columns detected",
				stats.ColumnsDetected, stats.ColumnsExpected))
			b.recommendations = append(b.recommendations,
				"check for merged or shifted columns in the output")
		}
	}
	b.stages = append(b.stages, models.StageConfidence{
		Name: "column detection", Score: score, Weight: weightColumns,
		Successes: stats.ColumnsDetected, Total: stats.ColumnsExpected,
	})
}

func (b *Builder) addRatioStage(name string, weight float64, successes, total int) {
	score := 100
	if total > 0 {
		score = ratioScore(successes, total)
	}
	if score < 90 && total > 0 {
		b.flags = append(b.flags, fmt.Sprintf("%s succeeded for %d of %d rows", name, successes, total))
	}
	b.stages = append(b.stages, models.StageConfidence{
		Name: name, Score: score, Weight: weight, Successes: successes, Total: total,
	})
}

func (b *Builder) addBalanceValidation(stats models.PipelineStats) {
	score := 100
	if stats.BalanceChecks > 0 {
		score = ratioScore(stats.BalanceChecks-stats.BalanceErrors, stats.BalanceChecks)
		errRate := float64(stats.BalanceErrors) / float64(stats.BalanceChecks)
		b.metrics["balanceErrorRate"] = errRate
		if errRate > 0.10 {
			b.flags = append(b.flags, fmt.Sprintf(
				"%.0f%% of balance checks failed", errRate*100))
			b.recommendations = append(b.recommendations,
				"review flagged rows; the statement may have missing or reordered transactions")
		}
	}
	b.stages = append(b.stages, models.StageConfidence{
		Name: "balance validation", Score: score, Weight: weightBalance,
		Successes: stats.BalanceChecks - stats.BalanceErrors, Total: stats.BalanceChecks,
	})
}

// WithOCR records that OCR ran, with its average word confidence in [0,1].
func (b *Builder) WithOCR(avgWordConfidence float64) *Builder {
	b.ocrUsed = true
	b.ocrConfidence = avgWordConfidence
	b.metrics["ocrConfidence"] = avgWordConfidence
	if avgWordConfidence < 0.75 {
		b.flags = append(b.flags, "low OCR confidence")
		b.recommendations = append(b.recommendations,
			"rescan at 300 DPI or higher for better recognition")
	}
	return b
}

// Finalize computes the weighted overall score, blends in OCR quality when
// it was used, and maps the result to a letter grade.
func (b *Builder) Finalize() models.PipelineConfidence {
	var weighted float64
	for _, s := range b.stages {
		weighted += float64(s.Score) * s.Weight
	}
	if b.ocrUsed {
		weighted = weighted*(1-ocrBlend) + b.ocrConfidence*100*ocrBlend
	}

	overall := int(math.Round(weighted))
	if overall > 100 {
		overall = 100
	}
	if overall < 0 {
		overall = 0
	}

	return models.PipelineConfidence{
		Overall:         overall,
		Grade:           Grade(weighted),
		Stages:          b.stages,
		Metrics:         b.metrics,
		Flags:           b.flags,
		Recommendations: b.recommendations,
	}
}

// Grade maps a 0-100 score to a letter. Boundaries are inclusive on the
// higher grade: exactly 95 is an A, exactly 85 a B.
func Grade(score float64) string {
	switch {
	case score >= 95:
		return "A"
	case score >= 85:
		return "B"
	case score >= 70:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

func ratioScore(successes, total int) int {
	if total <= 0 {
		return 100
	}
	if successes < 0 {
		successes = 0
	}
	return int(math.Round(float64(successes) / float64(total) * 100))
}
