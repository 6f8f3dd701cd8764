package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeImportCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const csvHeader = "title,author,genre,mood,trope,heat_level,isbn\n"

func TestLoadCSV(t *testing.T) {
	path := writeImportCSV(t, csvHeader+
		"Beach Read,Emily Henry,contemporary,cozy,enemies-to-lovers,warm,9781984806734\n"+
		"The Hating Game,Sally Thorne,contemporary,,,hot,\n")

	rows, err := loadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "Beach Read", rows[0].Title)
	require.Equal(t, "Emily Henry", rows[0].Author)
	require.Equal(t, "enemies-to-lovers", rows[0].Trope)
	require.Equal(t, "9781984806734", rows[0].ISBN)

	require.Equal(t, "The Hating Game", rows[1].Title)
	require.Empty(t, rows[1].Mood)
	require.Equal(t, "hot", rows[1].HeatLevel)
}

func TestLoadCSVSkipsInvalidRows(t *testing.T) {
	path := writeImportCSV(t, csvHeader+
		",No Title,contemporary,,,,\n"+
		"No Author,,contemporary,,,,\n"+
		"Bad Genre,Author,cookbook,,,,\n"+
		"Bad Heat,Author,contemporary,,,volcanic,\n"+
		"Fine,Author,contemporary,cozy,small-town,sweet,\n")

	rows, err := loadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Fine", rows[0].Title)
}

func TestParseRowNormalizesCase(t *testing.T) {
	row, err := parseRow([]string{"Title", "Author", "Contemporary", "COZY", "Small-Town", "Sweet", ""})
	require.NoError(t, err)
	require.Equal(t, "contemporary", row.Genre)
	require.Equal(t, "cozy", row.Mood)
	require.Equal(t, "small-town", row.Trope)
	require.Equal(t, "sweet", row.HeatLevel)
}

func TestParseRowShortRecord(t *testing.T) {
	_, err := parseRow([]string{"Title", "Author"})
	require.Error(t, err)
}
