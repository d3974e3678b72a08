package extractor

import (
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf16"
)

// glyphTable maps font character codes to Unicode text, built from the
// ToUnicode CMap streams embedded in a PDF. CIDFont/Type0 fonts encode
// text as glyph indices that are meaningless without this table.
type glyphTable struct {
	byteLen int // code width in bytes, usually 1 or 2
	runes   map[uint32]string
}

var (
	bfCharRe   = regexp.MustCompile(`(?s)beginbfchar\s*(.*?)\s*endbfchar`)
	bfRangeRe  = regexp.MustCompile(`(?s)beginbfrange\s*(.*?)\s*endbfrange`)
	hexTokenRe = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
)

// buildGlyphTable scans every stream in the document for ToUnicode CMap
// data and merges all mappings into one table. Returns nil when the
// document carries no CMaps.
func buildGlyphTable(data []byte) *glyphTable {
	gt := &glyphTable{byteLen: 1, runes: make(map[uint32]string)}
	for _, stream := range contentStreams(data) {
		content := string(inflate(stream))
		if !strings.Contains(content, "beginbf") {
			continue
		}
		gt.parse(content)
	}
	if len(gt.runes) == 0 {
		return nil
	}
	return gt
}

func (gt *glyphTable) parse(content string) {
	// beginbfchar: pairs of <srcCode> <unicode>
	for _, block := range bfCharRe.FindAllStringSubmatch(content, -1) {
		tokens := hexTokenRe.FindAllStringSubmatch(block[1], -1)
		for i := 0; i+1 < len(tokens); i += 2 {
			gt.put(tokens[i][1], utf16BEString(tokens[i+1][1]))
		}
	}

	// beginbfrange: <start> <end> <dstStart>, or <start> <end> [<u1> <u2> ...]
	for _, block := range bfRangeRe.FindAllStringSubmatch(content, -1) {
		for _, line := range strings.Split(block[1], "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if idx := strings.Index(line, "["); idx >= 0 {
				heads := hexTokenRe.FindAllStringSubmatch(line[:idx], -1)
				if len(heads) < 2 {
					continue
				}
				start, ok := hexValue(heads[0][1])
				if !ok {
					continue
				}
				gt.noteWidth(heads[0][1])
				for i, ut := range hexTokenRe.FindAllStringSubmatch(line[idx:], -1) {
					gt.runes[start+uint32(i)] = utf16BEString(ut[1])
				}
				continue
			}

			tokens := hexTokenRe.FindAllStringSubmatch(line, -1)
			if len(tokens) < 3 {
				continue
			}
			start, ok1 := hexValue(tokens[0][1])
			end, ok2 := hexValue(tokens[1][1])
			dst, ok3 := hexValue(tokens[2][1])
			if !ok1 || !ok2 || !ok3 || end < start || end-start > 0xFFFF {
				continue
			}
			gt.noteWidth(tokens[0][1])
			for code := start; code <= end; code++ {
				gt.runes[code] = string(rune(dst + (code - start)))
			}
		}
	}
}

func (gt *glyphTable) put(srcHex, uni string) {
	if uni == "" {
		return
	}
	code, ok := hexValue(srcHex)
	if !ok {
		return
	}
	gt.noteWidth(srcHex)
	gt.runes[code] = uni
}

// noteWidth tracks the widest source code seen; mixed-width CMaps decode
// with the wider stride and fall back per byte.
func (gt *glyphTable) noteWidth(srcHex string) {
	if w := len(srcHex) / 2; w > gt.byteLen {
		gt.byteLen = w
	}
}

// decode translates raw string bytes through the table. Unknown codes are
// retried as single bytes, then passed through when printable ASCII.
func (gt *glyphTable) decode(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); {
		if i+gt.byteLen <= len(raw) {
			code := packCode(raw[i : i+gt.byteLen])
			if uni, ok := gt.runes[code]; ok {
				b.WriteString(uni)
				i += gt.byteLen
				continue
			}
		}
		if uni, ok := gt.runes[uint32(raw[i])]; ok {
			b.WriteString(uni)
		} else if raw[i] >= 32 && raw[i] < 127 {
			b.WriteByte(raw[i])
		}
		i++
	}
	return b.String()
}

func packCode(chunk []byte) uint32 {
	var v uint32
	for _, c := range chunk {
		v = v<<8 | uint32(c)
	}
	return v
}

// hexValue parses a hex token into a code point value. Tokens longer than
// 8 digits overflow uint32 and are rejected.
func hexValue(h string) (uint32, bool) {
	if h == "" || len(h) > 8 {
		return 0, false
	}
	var v uint32
	for _, c := range strings.ToUpper(h) {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v += uint32(c - '0')
		case c >= 'A' && c <= 'F':
			v += uint32(c-'A') + 10
		default:
			return 0, false
		}
	}
	return v, true
}

// utf16BEString interprets a hex destination token as UTF-16BE text,
// including surrogate pairs for supplementary-plane characters.
func utf16BEString(h string) string {
	if len(h)%2 != 0 {
		h = "0" + h
	}
	data, err := hex.DecodeString(h)
	if err != nil {
		return ""
	}
	var units []uint16
	for i := 0; i+1 < len(data); i += 2 {
		units = append(units, uint16(data[i])<<8|uint16(data[i+1]))
	}
	return string(utf16.Decode(units))
}
