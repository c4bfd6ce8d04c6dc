package postings

import (
	"errors"
	"jobwatch/lib/markup"
)

// DefaultHeading is the README section watched when none is configured.
const DefaultHeading = "## 🤖 Data Science, AI & Machine Learning New Grad Roles"

// ErrSectionNotFound is returned by Extract when the document has no section with the
// requested heading.
var ErrSectionNotFound = errors.New("section not found")

// column positions of a data row
const (
	colRole     = 1
	colLocation = 2
	colLink     = 3
	colAge      = 4
	minColumns  = 5
)

// Extract parses the job table found under `heading` in a README document.
//
// The first table row is the header and is skipped. Rows without a bold company
// name or with fewer than five cells are skipped. A section with no usable rows
// yields an empty slice and a nil error.
func Extract(doc, heading string) ([]Record, error) {
	section, ok := markup.Section(doc, heading)
	if !ok {
		return nil, ErrSectionNotFound
	}

	records := []Record{}
	for i, row := range markup.Elements(section, "tr") {
		if i == 0 {
			continue
		}
		record, ok := parseRow(row)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func parseRow(row string) (Record, bool) {
	company, ok := companyName(row)
	if !ok {
		return Record{}, false
	}

	cells := markup.Elements(row, "td")
	if len(cells) < minColumns {
		return Record{}, false
	}

	link, _ := markup.Attr(cells[colLink], "href")

	return Record{
		Company:  company,
		Role:     markup.StripTags(cells[colRole]),
		Location: markup.StripTags(cells[colLocation]),
		Age:      markup.StripTags(cells[colAge]),
		Link:     link,
	}, true
}

func companyName(row string) (string, bool) {
	for _, tag := range []string{"strong", "b"} {
		inner, ok := markup.FirstElement(row, tag)
		if !ok {
			continue
		}
		if name := markup.StripTags(inner); name != "" {
			return name, true
		}
	}
	return "", false
}
