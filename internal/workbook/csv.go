package workbook

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvDecoders maps detected charsets to decoders. UTF-8 and anything not
// listed is read as is.
var csvDecoders = map[string]encoding.Encoding{
	"windows-1251": charmap.Windows1251,
	"cp1251":       charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"koi8-r":       charmap.KOI8R,
}

// readCSV reads a delimited file as a single sheet, auto-detecting the
// character encoding and the delimiter.
func readCSV(name string, data []byte) (Sheet, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var r io.Reader = bytes.NewReader(data)
	if dec, ok := csvDecoders[detectCharset(data)]; ok {
		r = transform.NewReader(r, dec.NewDecoder())
	}

	br := bufio.NewReader(r)
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = sniffDelimiter(br)

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Sheet{}, &SheetError{Sheet: name, Err: fmt.Errorf("csv: %w", err)}
		}
		records = append(records, rec)
	}

	return buildSheet(name, records), nil
}

// detectCharset returns the lower-cased charset chardet considers most likely.
func detectCharset(data []byte) string {
	peek := data
	if len(peek) > 4096 {
		peek = peek[:4096]
	}
	if len(peek) == 0 {
		return "utf-8"
	}
	det, err := chardet.NewTextDetector().DetectBest(peek)
	if err != nil || det == nil {
		return "utf-8"
	}
	return strings.ToLower(det.Charset)
}

// sniffDelimiter picks ';' or '\t' when the first line uses them more than
// commas. European spreadsheet exports commonly write semicolons.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}

	best, bestCount := ',', bytes.Count(peek, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(peek, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
