package thirteenf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/etnz/timberline"
)

// DefaultTableID is the id of the holdings table on a filing page.
const DefaultTableID = "filingAggregated"

// Format is the shape of a holdings payload.
type Format int

const (
	// JSONRows is a JSON document holding an array of rows.
	JSONRows Format = iota
	// HTMLTable is an HTML document holding the holdings table.
	HTMLTable
)

func (f Format) String() string {
	switch f {
	case JSONRows:
		return "json"
	case HTMLTable:
		return "html"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// DataLocation tells where the holdings of a filing are, and in which format.
type DataLocation struct {
	Format Format
	// Path is the URL, absolute or relative to the site, of the payload.
	// It is empty when the payload is Inline.
	Path string
	// Inline is the payload itself when it is embedded in the filing page.
	Inline []byte
}

// ResolveDataLocation finds the holdings table marker in a filing page.
//
// The marker is a table whose id is tableID. If it carries a data-url
// attribute the holdings are JSON rows at that URL, otherwise the table
// itself holds them.
// It fails with timberline.ErrSourceFormat when the page has no such table.
func ResolveDataLocation(filingPage []byte, tableID string) (DataLocation, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(filingPage))
	if err != nil {
		return DataLocation{}, fmt.Errorf("%w: cannot parse filing page: %v", timberline.ErrSourceFormat, err)
	}

	table := doc.Find("table").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return strings.EqualFold(id, tableID)
	}).First()
	if table.Length() == 0 {
		return DataLocation{}, fmt.Errorf("%w: no table %q on filing page", timberline.ErrSourceFormat, tableID)
	}

	if dataURL := strings.TrimSpace(table.AttrOr("data-url", "")); dataURL != "" {
		return DataLocation{Format: JSONRows, Path: dataURL}, nil
	}

	html, err := goquery.OuterHtml(table)
	if err != nil {
		return DataLocation{}, fmt.Errorf("%w: cannot render table %q: %v", timberline.ErrSourceFormat, tableID, err)
	}
	return DataLocation{Format: HTMLTable, Inline: []byte(html)}, nil
}
