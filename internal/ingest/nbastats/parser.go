package nbastats

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fortuna/matchups/internal/store"
)

var (
	// ErrTableNotFound means the page had no stats table
	ErrTableNotFound = errors.New("stats table not found")
	// ErrMissingColumns means the table lacked the columns a record needs
	ErrMissingColumns = errors.New("expected columns missing")
)

// Table is a scraped HTML table as text cells
type Table struct {
	Headers []string
	Rows    [][]string
}

// Column returns the index of the first header equal to name, or -1
func (t *Table) Column(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// cell returns row[idx] or "" when the row is short or idx is -1
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// ParseHTML converts raw HTML to a goquery Document for parsing
func ParseHTML(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ParseTable extracts the first stats table from a rendered page
func ParseTable(htmlContent string) (*Table, error) {
	doc, err := ParseHTML(htmlContent)
	if err != nil {
		return nil, err
	}

	sel := doc.Find(TableSelector).First()
	if sel.Length() == 0 {
		return nil, ErrTableNotFound
	}

	table := &Table{}
	sel.Find("thead th").Each(func(i int, th *goquery.Selection) {
		table.Headers = append(table.Headers, strings.TrimSpace(th.Text()))
	})

	sel.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		var row []string
		tr.Find("td").Each(func(j int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		table.Rows = append(table.Rows, row)
	})

	return table, nil
}

// OffensiveRows keeps TEAM, PLAYER and PTS from a player play-type table.
// At least one of the three columns must exist.
func OffensiveRows(table *Table, playType string) ([]store.OffensiveRecord, error) {
	teamIdx := table.Column("TEAM")
	playerIdx := table.Column("PLAYER")
	ptsIdx := table.Column("PTS")

	if teamIdx < 0 && playerIdx < 0 && ptsIdx < 0 {
		return nil, fmt.Errorf("%w for %s: want TEAM, PLAYER, PTS, got %v", ErrMissingColumns, playType, table.Headers)
	}

	records := make([]store.OffensiveRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := store.OffensiveRecord{
			Team:     cell(row, teamIdx),
			Player:   cell(row, playerIdx),
			PlayType: playType,
		}
		if ptsIdx >= 0 {
			rec.Points = store.ParseNullFloat(cell(row, ptsIdx))
		}
		records = append(records, rec)
	}

	return records, nil
}

// DefensiveRows keeps TEAM and PPP from a team defense table and ranks each
// row by its position on the page.
func DefensiveRows(table *Table, playType string) ([]store.DefensiveRecord, error) {
	teamIdx := table.Column("TEAM")
	pppIdx := table.Column("PPP")

	if teamIdx < 0 || pppIdx < 0 {
		return nil, fmt.Errorf("%w for %s defense: want TEAM, PPP, got %v", ErrMissingColumns, playType, table.Headers)
	}

	records := make([]store.DefensiveRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		records = append(records, store.DefensiveRecord{
			Rank:     i + 1,
			Team:     cell(row, teamIdx),
			PPP:      store.ParseNullFloat(cell(row, pppIdx)),
			PlayType: playType,
		})
	}

	return records, nil
}
