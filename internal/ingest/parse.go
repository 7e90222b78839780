package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/AngelCh415/roi-insights/internal/apperr"
	"github.com/AngelCh415/roi-insights/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText returns the payload as UTF-8. Spreadsheet exports with Chinese
// headers are often GB18030 rather than UTF-8, so that is the fallback.
func decodeText(b []byte) ([]byte, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return b, nil
	}
	out, err := simplifiedchinese.GB18030.NewDecoder().Bytes(b)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return nil, apperr.DataImport("File is not valid text")
	}
	return out, nil
}

type rowKey struct {
	date    string
	app     string
	country string
}

// ParseRecords reads a CSV document with a header row and returns every data
// row validated and transformed, in file order. The first failing line aborts
// the parse.
func ParseRecords(r io.Reader) ([]models.RoiRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.DataImport("File is empty")
	}
	if err != nil {
		return nil, syntaxErr(err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}

	var (
		out  []models.RoiRecord
		seen = map[rowKey]int{}
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, syntaxErr(err)
		}
		if blank(row) {
			continue
		}
		line, _ := cr.FieldPos(0)

		raw := make(RawRecord, len(cols))
		for i, name := range cols {
			if i < len(row) {
				raw[name] = strings.TrimSpace(row[i])
			}
		}
		if err := Validate(raw, line); err != nil {
			return nil, err
		}
		rec, err := Transform(raw, line)
		if err != nil {
			return nil, err
		}

		k := rowKey{rec.Date.Format(models.DateLayout), rec.App, rec.Country}
		if prev, dup := seen[k]; dup {
			return nil, apperr.CSVField(line, ColDate, raw[ColDate],
				fmt.Sprintf("duplicate of line %d for %s/%s", prev, rec.App, rec.Country))
		}
		seen[k] = line
		out = append(out, rec)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func syntaxErr(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return apperr.CSVField(pe.Line, "row", "", pe.Err.Error())
	}
	return apperr.DataImport("Failed to read CSV: " + err.Error())
}
