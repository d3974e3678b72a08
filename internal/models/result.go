package models

// Progress is an observational stage/percent/message tuple emitted while a
// file is processed. There is no backpressure: slow consumers miss updates.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// Stage names reported through Progress.
const (
	StageUpload   = "upload"
	StageClassify = "classify"
	StageOCR      = "ocr"
	StageExtract  = "extract"
	StageDetect   = "detect"
	StageMerge    = "merge"
	StageComplete = "complete"
)

// PipelineStats accumulates per-stage success/failure counts while a file is
// processed. The confidence scorer turns these into a graded signal.
type PipelineStats struct {
	BankDetected    bool    `json:"bankDetected"`
	BankConfidence  float64 `json:"bankConfidence"`
	ColumnsExpected int     `json:"columnsExpected"`
	ColumnsDetected int     `json:"columnsDetected"`
	DatesTotal      int     `json:"datesTotal"`
	DatesParsed     int     `json:"datesParsed"`
	AmountsTotal    int     `json:"amountsTotal"`
	AmountsParsed   int     `json:"amountsParsed"`
	BalanceChecks   int     `json:"balanceChecks"`
	BalanceErrors   int     `json:"balanceErrors"`
	OCRUsed         bool    `json:"ocrUsed"`
	OCRConfidence   float64 `json:"ocrConfidence"`
}

// StageConfidence is one weighted sub-score of the pipeline confidence.
type StageConfidence struct {
	Name      string  `json:"name"`
	Score     int     `json:"score"`
	Weight    float64 `json:"weight"`
	Successes int     `json:"successes"`
	Total     int     `json:"total"`
}

// PipelineConfidence is the single graded quality signal for a processed
// file. Diagnostic only; it never gates pipeline success.
type PipelineConfidence struct {
	Overall         int                `json:"overall"`
	Grade           string             `json:"grade"`
	Stages          []StageConfidence  `json:"stages"`
	Metrics         map[string]float64 `json:"metrics"`
	Flags           []string           `json:"flags,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// ProcessingResult is the single-file output contract toward callers.
type ProcessingResult struct {
	Success           bool                `json:"success"`
	Document          *ParsedDocument     `json:"document,omitempty"`
	Transactions      []ParsedTransaction `json:"transactions"`
	TotalTransactions int                 `json:"totalTransactions"`
	Confidence        *PipelineConfidence `json:"confidence,omitempty"`
	Errors            []string            `json:"errors"`
	Warnings          []string            `json:"warnings"`
	ProcessingTimeMs  int64               `json:"processingTimeMs"`
}

// FileStatus is the per-file record collected during batch processing.
type FileStatus struct {
	FileName          string `json:"fileName"`
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
	TotalTransactions int    `json:"totalTransactions"`
}

// BatchProcessingResult is the multi-file output contract. A batch with zero
// successful files still produces a well-formed (empty) result.
type BatchProcessingResult struct {
	BatchID          string           `json:"batchId"`
	Files            []FileStatus     `json:"files"`
	Merged           *ParsedDocument  `json:"merged,omitempty"`
	Duplicates       []DuplicateGroup `json:"duplicates,omitempty"`
	Warnings         []string         `json:"warnings"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
}
