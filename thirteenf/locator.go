package thirteenf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/etnz/timberline"
)

// DefaultLinkPrefix is the path prefix of filing pages on the aggregator.
const DefaultLinkPrefix = "/13f/"

// ListFilingIDs returns the filings linked from a manager page, in document
// order. The aggregator lists the most recent filing first.
//
// A link is any href starting with prefix (case insensitive). Repeated links
// are all kept.
// It fails with timberline.ErrSourceFormat when the page has no such link.
func ListFilingIDs(managerPage []byte, prefix string) ([]timberline.FilingID, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(managerPage))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse manager page: %v", timberline.ErrSourceFormat, err)
	}

	var ids []timberline.FilingID
	doc.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if len(href) > len(prefix) && strings.EqualFold(href[:len(prefix)], prefix) {
			ids = append(ids, timberline.FilingID(href))
		}
	})
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no %q filing link on manager page", timberline.ErrSourceFormat, prefix)
	}
	return ids, nil
}

// SelectFilings picks the latest filing and the one before it.
//
// The previous filing is the first id after the latest one that differs from
// it, so a latest filing linked several times is not compared to itself.
// ok is false when all ids are the same filing.
func SelectFilings(ids []timberline.FilingID) (latest, previous timberline.FilingID, ok bool) {
	if len(ids) == 0 {
		return "", "", false
	}
	latest = ids[0]
	for _, id := range ids[1:] {
		if id != latest {
			return latest, id, true
		}
	}
	return latest, "", false
}
