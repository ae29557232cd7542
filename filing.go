package timberline

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// FilingID identifies a filing on the aggregator site. It is the relative path
// of the filing page, e.g. "/13f/000095012325008345-himalaya-capital-management-llc-q2-2025".
//
// It is opaque to the rest of the system, only Quarter tries to read into it.
type FilingID string

var quarterSuffix = regexp.MustCompile(`(?i)-q([1-4])-(\d{4})$`)

// Quarter returns the reporting quarter encoded in the filing id, e.g. "Q2 2025".
// ok is false if the id does not end with a quarter marker.
func (id FilingID) Quarter() (q string, ok bool) {
	m := quarterSuffix.FindStringSubmatch(strings.TrimSuffix(string(id), "/"))
	if m == nil {
		return "", false
	}
	return fmt.Sprintf("Q%s %s", m[1], m[2]), true
}

// Label returns a short human readable name for the filing: its quarter if
// known, its last path element otherwise.
func (id FilingID) Label() string {
	if q, ok := id.Quarter(); ok {
		return q
	}
	if id == "" {
		return ""
	}
	return path.Base(string(id))
}

func (id FilingID) String() string { return string(id) }
