package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mitchellh/go-wordwrap"
)

// preferredColumns lead every issue table in this order when present
var preferredColumns = []string{"key", "summary", "status", "assignee", "priority", "type", "description"}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Tabular is an answer split into its lead-in text and table records
type Tabular struct {
	Prefix  string
	Columns []string
	Rows    [][]string
}

// ParseTabular recognises "<prefix>: [<objects>]" answers whose records all
// share the first record's keys. ok is false for any other answer.
func ParseTabular(answer string) (*Tabular, bool) {
	idx := strings.Index(answer, ": [")
	if idx < 0 {
		return nil, false
	}

	payload := strings.TrimSpace(answer[idx+2:])
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()

	var records []map[string]interface{}
	if err := dec.Decode(&records); err != nil {
		return nil, false
	}
	if dec.More() || len(records) == 0 {
		return nil, false
	}

	columns := orderColumns(records[0])
	for _, rec := range records[1:] {
		if !sameKeys(rec, records[0]) {
			return nil, false
		}
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cellText(rec[col])
		}
		rows = append(rows, row)
	}

	return &Tabular{
		Prefix:  answer[:idx],
		Columns: columns,
		Rows:    rows,
	}, true
}

// RenderAnswer formats an answer for a terminal of the given width
func RenderAnswer(answer string, width int) string {
	if tab, ok := ParseTabular(answer); ok {
		return tab.Prefix + ":\n" + tab.Render(width)
	}
	return wrap(answer, width)
}

// Render draws the records as a bordered table no wider than width
func (t *Tabular) Render(width int) string {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(t.Columns...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	if width > 0 {
		tbl = tbl.Width(width)
	}
	return tbl.Render()
}

func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wordwrap.WrapString(text, uint(width))
}

func orderColumns(rec map[string]interface{}) []string {
	columns := make([]string, 0, len(rec))
	seen := make(map[string]bool, len(rec))
	for _, col := range preferredColumns {
		if _, ok := rec[col]; ok {
			columns = append(columns, col)
			seen[col] = true
		}
	}

	var rest []string
	for col := range rec {
		if !seen[col] {
			rest = append(rest, col)
		}
	}
	sort.Strings(rest)
	return append(columns, rest...)
}

func sameKeys(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func cellText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.ReplaceAll(val, "\n", " ")
	case json.Number:
		return val.String()
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
