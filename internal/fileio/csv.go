package fileio

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readCSV reads a CSV export with headerRow (1-based) and converts it to
// UTF-8. Thai retailer back offices still emit Windows-874 (TIS-620), and
// Excel's "Unicode text" export is UTF-16; both are detected from the first
// bytes.
func readCSV(r io.Reader, headerRow int) ([]map[string]string, error) {
	br := bufio.NewReader(r)
	peek, _ := br.Peek(4096)

	var dec io.Reader = br
	if enc := detectEncoding(peek); enc != nil {
		dec = transform.NewReader(br, enc.NewDecoder())
	}

	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if looksTabSeparated(peek) {
		cr.Comma = '\t'
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	h := pickHeader(rows, headerRow)
	return rowsToMaps(rows, h, headerRow), nil
}

// detectEncoding returns nil for UTF-8 input.
func detectEncoding(peek []byte) encoding.Encoding {
	if len(peek) == 0 {
		return nil
	}
	if len(peek) >= 2 && (peek[0] == 0xFF && peek[1] == 0xFE || peek[0] == 0xFE && peek[1] == 0xFF) {
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	}
	if validUTF8Prefix(peek) {
		return nil
	}
	if det, err := chardet.NewTextDetector().DetectBest(peek); err == nil && det != nil {
		switch strings.ToLower(det.Charset) {
		case "utf-16le":
			return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
		case "utf-16be":
			return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
		}
	}
	// chardet has no Thai model; non-UTF-8 bytes here are TIS-620 in practice
	return charmap.Windows874
}

// validUTF8Prefix tolerates a rune cut off at the end of the peek buffer.
func validUTF8Prefix(b []byte) bool {
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			return !utf8.FullRune(b) && len(b) < utf8.UTFMax
		}
		b = b[size:]
	}
	return true
}

func looksTabSeparated(peek []byte) bool {
	line, _, _ := strings.Cut(string(peek), "\n")
	return strings.Count(line, "\t") > strings.Count(line, ",")
}
