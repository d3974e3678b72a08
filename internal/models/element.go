package models

// ElementSource records how a text element was obtained.
type ElementSource string

const (
	SourceTextLayer ElementSource = "text-layer"
	SourceOCR       ElementSource = "ocr"
)

// BoundingBox is an element's position on the page, origin top-left,
// in the coordinate space of whichever extractor produced it.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FontInfo is optional font metadata from the text layer. OCR elements
// never carry it.
type FontInfo struct {
	FontName string  `json:"fontName"`
	FontSize float64 `json:"fontSize"`
	IsBold   bool    `json:"isBold"`
	IsItalic bool    `json:"isItalic"`
}

// TextElement is one positioned piece of text, from either the PDF text
// layer or OCR. Immutable once created.
type TextElement struct {
	Text       string        `json:"text"`
	Bounds     BoundingBox   `json:"boundingBox"`
	PageNumber int           `json:"pageNumber"`
	Confidence float64       `json:"confidence"`
	Source     ElementSource `json:"source"`
	Font       *FontInfo     `json:"fontInfo,omitempty"`
}

// PageType is the outcome of first-page classification.
type PageType string

const (
	PageTypeTextBased PageType = "TEXT_BASED"
	PageTypeScanned   PageType = "SCANNED"
)
