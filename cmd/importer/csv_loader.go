package importer

import (
	"fmt"
	"strings"

	"github.com/ekarhu/tropeshelf/internal/csvutil"
	"github.com/ekarhu/tropeshelf/internal/taxonomy"
)

// importRow is one parsed line of a book CSV export. Expected columns:
// title, author, genre, mood, trope, heat_level, isbn.
type importRow struct {
	Title     string
	Author    string
	Genre     string
	Mood      string
	Trope     string
	HeatLevel string
	ISBN      string
}

const csvColumns = 7

// loadCSV reads and validates the import file. Rows with a bad taxonomy
// value or a missing title/author are logged and skipped rather than
// aborting the whole file.
func loadCSV(filename string) ([]importRow, error) {
	return csvutil.ProcessCSV(filename, parseRow, csvutil.ProcessorOptions{
		FieldsPerRecord: csvColumns,
		SkipInvalid:     true,
	})
}

func parseRow(record []string) (importRow, error) {
	if len(record) < csvColumns {
		return importRow{}, fmt.Errorf("expected %d columns, got %d", csvColumns, len(record))
	}

	row := importRow{
		Title:     strings.TrimSpace(record[0]),
		Author:    strings.TrimSpace(record[1]),
		Genre:     strings.ToLower(strings.TrimSpace(record[2])),
		Mood:      strings.ToLower(strings.TrimSpace(record[3])),
		Trope:     strings.ToLower(strings.TrimSpace(record[4])),
		HeatLevel: strings.ToLower(strings.TrimSpace(record[5])),
		ISBN:      strings.TrimSpace(record[6]),
	}

	if row.Title == "" {
		return importRow{}, fmt.Errorf("title is required")
	}
	if row.Author == "" {
		return importRow{}, fmt.Errorf("author is required for %q", row.Title)
	}

	if row.Genre != "" && !taxonomy.ValidGenre(row.Genre) {
		return importRow{}, fmt.Errorf("unknown genre %q for %q", row.Genre, row.Title)
	}
	if row.Mood != "" && !taxonomy.ValidMood(row.Mood) {
		return importRow{}, fmt.Errorf("unknown mood %q for %q", row.Mood, row.Title)
	}
	if row.Trope != "" && !taxonomy.ValidTrope(row.Trope) {
		return importRow{}, fmt.Errorf("unknown trope %q for %q", row.Trope, row.Title)
	}
	if row.HeatLevel != "" && !taxonomy.ValidHeatLevel(row.HeatLevel) {
		return importRow{}, fmt.Errorf("unknown heat level %q for %q", row.HeatLevel, row.Title)
	}

	return row, nil
}
