package csvutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct {
	Name  string
	Value string
}

func parseRow(record []string) (row, error) {
	if record[0] == "" {
		return row{}, fmt.Errorf("name is required")
	}
	return row{Name: record[0], Value: record[1]}, nil
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessCSV(t *testing.T) {
	path := writeCSV(t, "name,value\nalpha,1\nbeta,2\n")

	items, err := ProcessCSV(path, parseRow, ProcessorOptions{FieldsPerRecord: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, row{Name: "alpha", Value: "1"}, items[0])
	require.Equal(t, row{Name: "beta", Value: "2"}, items[1])
}

func TestProcessCSVSkipInvalid(t *testing.T) {
	path := writeCSV(t, "name,value\nalpha,1\n,broken\nbeta,2\n")

	items, err := ProcessCSV(path, parseRow, ProcessorOptions{
		FieldsPerRecord: 2,
		SkipInvalid:     true,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestProcessCSVInvalidAborts(t *testing.T) {
	path := writeCSV(t, "name,value\n,broken\n")

	_, err := ProcessCSV(path, parseRow, ProcessorOptions{FieldsPerRecord: 2})
	require.Error(t, err)
}

func TestProcessCSVMissingFile(t *testing.T) {
	_, err := ProcessCSV(filepath.Join(t.TempDir(), "nope.csv"), parseRow, ProcessorOptions{})
	require.Error(t, err)
}

func TestProcessCSVEmptyFile(t *testing.T) {
	path := writeCSV(t, "")
	_, err := ProcessCSV(path, parseRow, ProcessorOptions{})
	require.Error(t, err)
}
