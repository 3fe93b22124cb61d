package feed

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jcmexdev/pharmacy-orders/internal/catalog"
)

// headerMarkers identify a header row by its first cell.
var headerMarkers = []string{"nombre", "name", "producto", "medicamento", "item"}

// ParseResult is the outcome of reading one feed document.
type ParseResult struct {
	Items      []catalog.Item
	Rejected   int
	Duplicates int
}

// Parse reads a delimited feed with at least a name and a price column.
// Quoted fields may contain the delimiter. A leading header row is skipped.
// Rows without a name or a positive price are rejected; repeated names keep
// the first occurrence.
func Parse(r io.Reader) (ParseResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{}, fmt.Errorf("feed: read: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = detectDelimiter(raw)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var res ParseResult
	seen := make(map[string]struct{})
	first := true

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			res.Rejected++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("feed: parse: %w", err)
		}

		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}
		if blank(rec) {
			continue
		}

		item, ok := parseRecord(rec)
		if !ok {
			res.Rejected++
			continue
		}
		if _, dup := seen[item.Name]; dup {
			res.Duplicates++
			continue
		}
		seen[item.Name] = struct{}{}
		res.Items = append(res.Items, item)
	}

	return res, nil
}

func parseRecord(rec []string) (catalog.Item, bool) {
	if len(rec) < 2 {
		return catalog.Item{}, false
	}
	name := strings.TrimSpace(rec[0])
	if name == "" {
		return catalog.Item{}, false
	}
	price, ok := ParsePrice(rec[1])
	if !ok {
		return catalog.Item{}, false
	}
	return catalog.NewItem(name, price), true
}

func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	cell := strings.ToLower(rec[0])
	for _, m := range headerMarkers {
		if strings.Contains(cell, m) {
			return true
		}
	}
	return false
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// sampleLines bounds how much of the document delimiter detection reads.
const sampleLines = 20

// detectDelimiter splits the first lines with both candidate delimiters and
// keeps the one that yields more rows with a name and a valid price. Comma
// decimal locales export with ';', so ties go to ';' whenever the sample has
// any semicolon outside quotes.
func detectDelimiter(raw []byte) rune {
	sample := raw
	for i, n := 0, 0; i < len(raw); i++ {
		if raw[i] == '\n' {
			n++
			if n == sampleLines {
				sample = raw[:i]
				break
			}
		}
	}

	commaRows := validRows(sample, ',')
	semiRows := validRows(sample, ';')
	switch {
	case semiRows > commaRows:
		return ';'
	case commaRows > semiRows:
		return ','
	}

	commas, semis := countUnquoted(sample)
	if semis > 0 && (commaRows > 0 || semis >= commas) {
		return ';'
	}
	return ','
}

func validRows(sample []byte, comma rune) int {
	cr := csv.NewReader(bytes.NewReader(sample))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	n := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			return n
		}
		if _, ok := parseRecord(rec); ok {
			n++
		}
	}
}

func countUnquoted(sample []byte) (commas, semis int) {
	quoted := false
	for _, c := range sample {
		switch c {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				commas++
			}
		case ';':
			if !quoted {
				semis++
			}
		}
	}
	return commas, semis
}
