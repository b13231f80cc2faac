package commands

import (
	"strings"
	"testing"
)

func TestPrintResultRejectsUnknownFormat(t *testing.T) {
	old := formatOutput
	defer func() { formatOutput = old }()

	formatOutput = "xml"
	err := printResult(map[string]int{"n": 1}, "", []string{"N"}, [][]string{{"1"}})
	if err == nil || !strings.Contains(err.Error(), "unsupported output format") {
		t.Fatalf("err = %v", err)
	}
}

func TestPrintResultTableWithoutHeaders(t *testing.T) {
	old := formatOutput
	defer func() { formatOutput = old }()

	formatOutput = "table"
	if err := printResult(map[string]int{"n": 1}, "", nil, nil); err != nil {
		t.Fatalf("table without headers: %v", err)
	}
}
