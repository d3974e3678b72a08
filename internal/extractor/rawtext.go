package extractor

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"io"
	"regexp"
	"strings"
	"unicode"
)

// rawTextFallback decodes text straight from the PDF byte stream, without
// the structured reader. It exists for files whose fonts the library cannot
// decode: it builds a glyph table from every ToUnicode CMap in the file,
// then walks the content streams' BT..ET blocks applying Tj/TJ/' operators.
// Returns one string per stream that yielded text; empty when nothing
// decodable was found.
func rawTextFallback(data []byte) []string {
	streams := contentStreams(data)
	if len(streams) == 0 {
		return nil
	}
	glyphs := buildGlyphTable(data)

	var out []string
	for _, stream := range streams {
		content := string(inflate(stream))
		if !strings.Contains(content, "BT") && !strings.Contains(content, "Tj") &&
			!strings.Contains(content, "TJ") {
			continue
		}
		lines := decodeContentStream(content, glyphs)
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}

// contentStreams returns the payload of every stream..endstream block.
func contentStreams(data []byte) [][]byte {
	var streams [][]byte
	for offset := 0; offset < len(data); {
		idx := bytes.Index(data[offset:], []byte("stream"))
		if idx < 0 {
			break
		}
		start := offset + idx + len("stream")
		if start < len(data) && data[start] == '\r' {
			start++
		}
		if start < len(data) && data[start] == '\n' {
			start++
		}
		end := bytes.Index(data[start:], []byte("endstream"))
		if end < 0 {
			break
		}
		if end > 0 {
			streams = append(streams, data[start:start+end])
		}
		offset = start + end + len("endstream")
	}
	return streams
}

// inflate zlib-decompresses a stream payload, returning it untouched when
// it is not FlateDecode data.
func inflate(data []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return data
	}
	return out
}

var (
	stringTokenRe = regexp.MustCompile(`<[0-9A-Fa-f]+>|\((?:[^()\\]|\\.)*\)`)
	tjOpRe        = regexp.MustCompile(`(<[0-9A-Fa-f]+>|\((?:[^()\\]|\\.)*\))\s*(Tj|')`)
	tjArrayRe     = regexp.MustCompile(`\[([^\]]*)\]\s*TJ`)
	newlineOpRe   = regexp.MustCompile(`[\d.\-]+\s+[\d.\-]+\s+T[dD]\b`)
)

// decodeContentStream walks a content stream's text blocks and returns the
// decoded lines in stream order. Td/TD and T* positioning operators break
// lines; the operators themselves carry no text.
func decodeContentStream(content string, glyphs *glyphTable) []string {
	var lines []string
	var cur strings.Builder

	flush := func() {
		if line := strings.TrimSpace(cur.String()); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	for _, block := range textBlocks(content) {
		for _, op := range strings.Split(block, "\n") {
			op = strings.TrimSpace(op)
			if op == "T*" || newlineOpRe.MatchString(op) {
				flush()
			}
			for _, m := range tjOpRe.FindAllStringSubmatch(op, -1) {
				if m[2] == "'" {
					flush()
				}
				cur.WriteString(decodeStringToken(m[1], glyphs))
			}
			for _, m := range tjArrayRe.FindAllStringSubmatch(op, -1) {
				cur.WriteString(decodeArrayItems(m[1], glyphs))
			}
		}
		flush()
	}
	return lines
}

// textBlocks splits out BT..ET spans; when a stream has none, the whole
// content is treated as one block.
func textBlocks(content string) []string {
	var blocks []string
	rest := content
	for {
		bt := strings.Index(rest, "BT")
		if bt < 0 {
			break
		}
		et := strings.Index(rest[bt:], "ET")
		if et < 0 {
			break
		}
		blocks = append(blocks, rest[bt:bt+et+2])
		rest = rest[bt+et+2:]
	}
	if len(blocks) == 0 {
		blocks = append(blocks, content)
	}
	return blocks
}

// decodeArrayItems decodes a TJ array's string members in order, skipping
// the interleaved kerning numbers.
func decodeArrayItems(array string, glyphs *glyphTable) string {
	var b strings.Builder
	for _, loc := range stringTokenRe.FindAllString(array, -1) {
		b.WriteString(decodeStringToken(loc, glyphs))
	}
	return b.String()
}

// decodeStringToken decodes one PDF string object, hex or literal form,
// through the glyph table when one exists.
func decodeStringToken(token string, glyphs *glyphTable) string {
	var raw []byte
	switch {
	case strings.HasPrefix(token, "<"):
		h := strings.Trim(token, "<>")
		if len(h)%2 != 0 {
			h += "0"
		}
		decoded, err := hex.DecodeString(h)
		if err != nil {
			return ""
		}
		raw = decoded
	case strings.HasPrefix(token, "("):
		raw = []byte(unescapeLiteral(strings.TrimSuffix(strings.TrimPrefix(token, "("), ")")))
	default:
		return ""
	}

	if glyphs != nil {
		if text := glyphs.decode(raw); mostlyPrintable(text) {
			return text
		}
	}

	// No usable table: hex strings may be plain UTF-16BE.
	if strings.HasPrefix(token, "<") && len(raw) >= 2 && len(raw)%2 == 0 {
		var b strings.Builder
		for i := 0; i+1 < len(raw); i += 2 {
			cp := rune(raw[i])<<8 | rune(raw[i+1])
			if unicode.IsPrint(cp) || cp == ' ' {
				b.WriteRune(cp)
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return stripUnprintable(string(raw))
}

// unescapeLiteral resolves PDF literal string escapes, including octal
// character codes.
func unescapeLiteral(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b', 'f':
			// formatting controls add nothing to extracted text
		case '(', ')', '\\':
			b.WriteByte(s[i])
		default:
			if s[i] >= '0' && s[i] <= '7' {
				val := int(s[i] - '0')
				for n := 0; n < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(s[i]-'0')
				}
				if val < 256 {
					b.WriteByte(byte(val))
				}
			} else {
				b.WriteByte(s[i])
			}
		}
	}
	return b.String()
}

func stripUnprintable(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			return r
		}
		return -1
	}, s))
}

func mostlyPrintable(s string) bool {
	if s == "" {
		return false
	}
	printable, total := 0, 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == ' ' {
			printable++
		}
	}
	return float64(printable)/float64(total) > 0.5
}
