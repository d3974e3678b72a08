package extractor

import "testing"

const testCMap = `/CIDInit /ProcSet findresource begin
begincmap
2 beginbfchar
<0041> <0048>
<0042> <0065006C006C006F>
endbfchar
1 beginbfrange
<0050> <0052> <0061>
endbfrange
endcmap
`

func TestGlyphTableParseAndDecode(t *testing.T) {
	gt := &glyphTable{byteLen: 1, runes: make(map[uint32]string)}
	gt.parse(testCMap)

	if gt.byteLen != 2 {
		t.Fatalf("byteLen = %d, want 2", gt.byteLen)
	}
	if got := gt.runes[0x0041]; got != "H" {
		t.Errorf("bfchar single = %q", got)
	}
	if got := gt.runes[0x0042]; got != "ello" {
		t.Errorf("bfchar multi = %q", got)
	}
	// Range <0050>..<0052> maps onto 'a', 'b', 'c'.
	for i, want := range []string{"a", "b", "c"} {
		if got := gt.runes[0x0050+uint32(i)]; got != want {
			t.Errorf("bfrange code %#x = %q, want %q", 0x0050+i, got, want)
		}
	}

	if got := gt.decode([]byte{0x00, 0x41, 0x00, 0x42}); got != "Hello" {
		t.Errorf("decode = %q, want Hello", got)
	}
}

func TestGlyphTableRangeArrayForm(t *testing.T) {
	gt := &glyphTable{byteLen: 1, runes: make(map[uint32]string)}
	gt.parse("1 beginbfrange\n<0010> <0011> [<0058> <0059>]\nendbfrange\n")

	if got := gt.runes[0x0010]; got != "X" {
		t.Errorf("array range first = %q", got)
	}
	if got := gt.runes[0x0011]; got != "Y" {
		t.Errorf("array range second = %q", got)
	}
}

func TestGlyphTableDecodeFallsBackPerByte(t *testing.T) {
	gt := &glyphTable{byteLen: 2, runes: map[uint32]string{0x0041: "A"}}
	// Unknown two-byte code followed by printable ASCII passes through.
	if got := gt.decode([]byte{0x00, 0x41, 'o', 'k'}); got != "Aok" {
		t.Errorf("decode = %q, want Aok", got)
	}
}

func TestBuildGlyphTableNone(t *testing.T) {
	if gt := buildGlyphTable([]byte("%PDF-1.4 nothing here")); gt != nil {
		t.Error("expected nil table for a document without CMaps")
	}
}

func TestHexValue(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"0041", 0x41, true},
		{"FF", 0xFF, true},
		{"", 0, false},
		{"123456789", 0, false},
		{"zz", 0, false},
	}
	for _, tt := range tests {
		got, ok := hexValue(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("hexValue(%q) = (%#x, %v), want (%#x, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestUTF16BEString(t *testing.T) {
	if got := utf16BEString("00480069"); got != "Hi" {
		t.Errorf("basic = %q", got)
	}
	// Surrogate pair for U+1D11E (musical G clef).
	if got := utf16BEString("D834DD1E"); got != "\U0001D11E" {
		t.Errorf("surrogate = %q", got)
	}
}
