package parser

import "regexp"

// Tesseract misreads decimal points in statement amounts often enough that
// it is worth fixing the known cases before any amount parsing happens.
// E.g. "19,720; 15:" → "19,720.15".
var (
	semicolonDecimal = regexp.MustCompile(`(\d);(\s*)(\d)`)
	colonDecimal     = regexp.MustCompile(`(\d):(\d)`)
	trailingColonSp  = regexp.MustCompile(`(\d):\s`)
	trailingColonEnd = regexp.MustCompile(`(\d):$`)
	strayNA          = regexp.MustCompile(`\s+NA\b`)
)

// sanitizeOCRLine fixes common OCR artifacts in a line of recognized text:
// semicolons and colons standing in for decimal points, and the stray "NA"
// Tesseract appends after amounts.
func sanitizeOCRLine(line string) string {
	line = semicolonDecimal.ReplaceAllString(line, "$1.$3")
	line = colonDecimal.ReplaceAllString(line, "$1.$2")
	line = trailingColonSp.ReplaceAllString(line, "$1 ")
	line = trailingColonEnd.ReplaceAllString(line, "$1")
	line = strayNA.ReplaceAllString(line, "")
	return line
}
