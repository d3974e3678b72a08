package parser

import "testing"

func TestSanitizeOCRLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"semicolon decimal", "19,720; 15", "19,720.15"},
		{"colon decimal", "1,234:56", "1,234.56"},
		{"trailing colon before space", "100: then", "100 then"},
		{"trailing colon at end", "2,500:", "2,500"},
		{"stray NA", "45.00 NA", "45.00"},
		{"clean line untouched", "15/01/2024 CARD PAYMENT 25.99 974.01", "15/01/2024 CARD PAYMENT 25.99 974.01"},
		{"colon after letters left alone", "ref: ABC123", "ref: ABC123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeOCRLine(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
