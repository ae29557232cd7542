package thirteenf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/PuerkitoBio/goquery"
	"github.com/etnz/timberline"
	"github.com/shopspring/decimal"
)

// DefaultRowsPath locates the row array in a JSON rows payload.
const DefaultRowsPath = "$.data"

// Extraction is the result of extracting a holdings payload.
type Extraction struct {
	Snapshot timberline.Snapshot
	// Skipped counts the rows dropped because they carry no symbol.
	Skipped int
	// Rows counts the data rows read, skipped ones included.
	Rows int
}

// Extractor turns a holdings payload into a snapshot.
//
// Row level anomalies never fail an extraction: a row without symbol is
// skipped, an unreadable cell is left empty or absent.
type Extractor interface {
	Extract(payload []byte) (Extraction, error)
	Format() Format
}

// ExtractorFor returns the extractor of a payload format.
// rowsPath is used by JSONRows only, DefaultRowsPath if empty.
func ExtractorFor(f Format, rowsPath string) (Extractor, error) {
	switch f {
	case HTMLTable:
		return HTMLTableExtractor{}, nil
	case JSONRows:
		if rowsPath == "" {
			rowsPath = DefaultRowsPath
		}
		return JSONRowsExtractor{RowsPath: rowsPath}, nil
	default:
		return nil, fmt.Errorf("unsupported payload format %v", f)
	}
}

// HTMLTableExtractor reads the first table of an HTML document. Its first row
// is the header, the columns are found by name:
//   - symbol: the header contains "symbol"
//   - issuer: the header contains "issuer", or else "company"
//   - percentage: the header contains "%" or "percent"
//   - value (optional): the header contains "value" and is not a percentage
//
// Header names are matched case insensitively.
type HTMLTableExtractor struct{}

func (HTMLTableExtractor) Format() Format { return HTMLTable }

// Extract implements Extractor.
func (HTMLTableExtractor) Extract(payload []byte) (Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: cannot parse html: %v", timberline.ErrSourceFormat, err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return Extraction{}, fmt.Errorf("%w: no table in html payload", timberline.ErrSourceFormat)
	}
	// rows of nested tables belong to their cell, not to the holdings.
	rows := table.ChildrenFiltered("thead, tbody, tfoot").ChildrenFiltered("tr").AddSelection(table.ChildrenFiltered("tr"))
	if rows.Length() == 0 {
		return Extraction{}, fmt.Errorf("%w: table has no header row", timberline.ErrSchemaNotFound)
	}

	cols, err := findColumns(cellTexts(rows.First()))
	if err != nil {
		return Extraction{}, err
	}

	var ex Extraction
	var positions []timberline.Position
	rows.Slice(1, goquery.ToEnd).Each(func(_ int, tr *goquery.Selection) {
		ex.Rows++
		cells := cellTexts(tr)
		p := timberline.Position{
			Symbol:     cellAt(cells, cols.symbol),
			Issuer:     cellAt(cells, cols.issuer),
			Percentage: cellAt(cells, cols.percentage),
		}
		if p.Symbol == "" {
			ex.Skipped++
			return
		}
		if cols.value >= 0 {
			p.ValueThousands = parseValue(cellAt(cells, cols.value))
		}
		positions = append(positions, p)
	})
	ex.Snapshot = timberline.NewSnapshot(positions)
	return ex, nil
}

// columns holds the index of each known column, -1 if missing.
type columns struct {
	symbol, issuer, percentage, value int
}

func findColumns(header []string) (columns, error) {
	cols := columns{-1, -1, -1, -1}
	company := -1
	for i, h := range header {
		h = strings.ToLower(h)
		isPercent := strings.Contains(h, "%") || strings.Contains(h, "percent")
		switch {
		case cols.symbol < 0 && strings.Contains(h, "symbol"):
			cols.symbol = i
		case cols.issuer < 0 && strings.Contains(h, "issuer"):
			cols.issuer = i
		case company < 0 && strings.Contains(h, "company"):
			company = i
		case cols.percentage < 0 && isPercent:
			cols.percentage = i
		case cols.value < 0 && !isPercent && strings.Contains(h, "value"):
			cols.value = i
		}
	}
	if cols.issuer < 0 {
		cols.issuer = company
	}

	var missing []string
	if cols.symbol < 0 {
		missing = append(missing, "symbol")
	}
	if cols.issuer < 0 {
		missing = append(missing, "issuer")
	}
	if cols.percentage < 0 {
		missing = append(missing, "percentage")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: no %s column in header %q", timberline.ErrSchemaNotFound, strings.Join(missing, ", "), header)
	}
	return cols, nil
}

// cellTexts returns the text of each cell of a row, markup stripped and
// whitespace collapsed.
func cellTexts(tr *goquery.Selection) []string {
	return tr.ChildrenFiltered("th, td").Map(func(_ int, s *goquery.Selection) string {
		if s.Find("table").Length() > 0 {
			s = s.Clone()
			s.Find("table").Remove()
		}
		return strings.Join(strings.Fields(s.Text()), " ")
	})
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

// JSONRowsExtractor reads the row array found at RowsPath in a JSON document.
//
// A row is either a positional array
//
//	[symbol, issuer, _, _, valueThousands, percentage, ...]
//
// or an object with one of several keys per field:
//
//	symbol: "sym", "symbol"
//	issuer: "issuer_name", "issuer"
//	percentage: "pct", "percent", "percentage"
//	value: "value", "value_thousands", "valueThousands"
//
// Values are read as numbers with thousands separators.
type JSONRowsExtractor struct {
	RowsPath string // jsonpath of the row array, e.g. "$.data"
}

func (JSONRowsExtractor) Format() Format { return JSONRows }

// Extract implements Extractor.
func (x JSONRowsExtractor) Extract(payload []byte) (Extraction, error) {
	path := x.RowsPath
	if path == "" {
		path = DefaultRowsPath
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return Extraction{}, fmt.Errorf("%w: cannot parse json payload: %v", timberline.ErrSourceFormat, err)
	}
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: no %s in json payload: %v", timberline.ErrSourceFormat, path, err)
	}
	rows, ok := v.([]interface{})
	if !ok {
		return Extraction{}, fmt.Errorf("%w: %s is a %T, not an array", timberline.ErrSourceFormat, path, v)
	}

	var ex Extraction
	positions := make([]timberline.Position, 0, len(rows))
	for _, row := range rows {
		ex.Rows++
		var p timberline.Position
		switch row := row.(type) {
		case []interface{}:
			p = timberline.Position{
				Symbol:         textAt(row, 0),
				Issuer:         textAt(row, 1),
				Percentage:     textAt(row, 5),
				ValueThousands: parseValue(textAt(row, 4)),
			}
		case map[string]interface{}:
			p = timberline.Position{
				Symbol:         textOf(row, "sym", "symbol"),
				Issuer:         textOf(row, "issuer_name", "issuer"),
				Percentage:     textOf(row, "pct", "percent", "percentage"),
				ValueThousands: parseValue(textOf(row, "value", "value_thousands", "valueThousands")),
			}
		}
		if p.Symbol == "" {
			ex.Skipped++
			continue
		}
		positions = append(positions, p)
	}
	ex.Snapshot = timberline.NewSnapshot(positions)
	return ex, nil
}

// textAt returns the trimmed text of the i-th cell of a positional row.
func textAt(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	return text(row[i])
}

// textOf returns the trimmed text of the first key present (and not null) in row.
func textOf(row map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return text(v)
		}
	}
	return ""
}

// text formats a scalar json value, other values degrade to "".
func text(v interface{}) string {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// parseValue reads a number with thousands separators, e.g. "1,234.5".
// It returns nil if s is empty or not a finite number.
func parseValue(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	v := d.InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return timberline.Float(v)
}
