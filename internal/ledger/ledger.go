package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"reelscribe/internal/config"
	"reelscribe/internal/fileutil"
	"reelscribe/internal/services"
)

// Columns names the ledger columns read and written by a run.
type Columns struct {
	Topic  string
	Days   string
	Output string
}

// ColumnsFromConfig returns the column names configured for the ledger.
func ColumnsFromConfig(cfg config.Ledger) Columns {
	return Columns{Topic: cfg.TopicColumn, Days: cfg.DaysColumn, Output: cfg.OutputColumn}
}

// WorkItem is one ledger row: a topic to search and the recency window to
// apply. Row is the 1-based data row, excluding the header.
type WorkItem struct {
	Row            int
	Topic          string
	LookbackDays   int
	TranscriptPath string
	// Invalid explains why the row cannot be processed; empty for usable rows.
	Invalid string
}

// Ledger holds the parsed CSV in memory.
type Ledger struct {
	path      string
	header    []string
	rows      [][]string
	topicIdx  int
	daysIdx   int
	outputIdx int
}

// Load reads the ledger at path and resolves the configured columns. The
// output column is appended to the header when absent.
func Load(path string, cols Columns) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "load", "ledger path is empty", nil)
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, "ledger", "load", fmt.Sprintf("ledger %q not found", path), err)
		}
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "load", "open ledger", err)
	}
	defer file.Close()
	return parse(path, file, cols)
}

func parse(path string, r io.Reader, cols Columns) (*Ledger, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "parse", path, err)
	}
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "parse", fmt.Sprintf("ledger %q has no header row", path), nil)
	}

	header := append([]string(nil), records[0]...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	l := &Ledger{path: path, header: header, rows: records[1:]}

	var missing []string
	if l.topicIdx = l.column(cols.Topic); l.topicIdx < 0 {
		missing = append(missing, cols.Topic)
	}
	if l.daysIdx = l.column(cols.Days); l.daysIdx < 0 {
		missing = append(missing, cols.Days)
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "parse",
			fmt.Sprintf("ledger %q is missing required columns: %s", path, strings.Join(missing, ", ")), nil)
	}

	output := strings.TrimSpace(cols.Output)
	if output == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "parse", "output column name is empty", nil)
	}
	if l.outputIdx = l.column(output); l.outputIdx < 0 {
		l.header = append(l.header, output)
		l.outputIdx = len(l.header) - 1
	}
	for i := range l.rows {
		l.rows[i] = pad(l.rows[i], len(l.header))
	}
	return l, nil
}

func (l *Ledger) column(name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, col := range l.header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}

func pad(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}

// Path returns the ledger location.
func (l *Ledger) Path() string { return l.path }

// Len returns the number of data rows.
func (l *Ledger) Len() int { return len(l.rows) }

// Items returns one WorkItem per data row in file order.
func (l *Ledger) Items() []WorkItem {
	items := make([]WorkItem, 0, len(l.rows))
	for i, row := range l.rows {
		item := WorkItem{
			Row:            i + 1,
			Topic:          strings.TrimSpace(row[l.topicIdx]),
			TranscriptPath: row[l.outputIdx],
		}
		days, err := strconv.Atoi(strings.TrimSpace(row[l.daysIdx]))
		switch {
		case item.Topic == "":
			item.Invalid = "empty topic"
		case err != nil:
			item.Invalid = fmt.Sprintf("look-back days %q is not an integer", row[l.daysIdx])
		case days < 0:
			item.Invalid = fmt.Sprintf("look-back days %d is negative", days)
		default:
			item.LookbackDays = days
		}
		items = append(items, item)
	}
	return items
}

// SetTranscriptPath records the transcript path for a 1-based data row. An
// empty path records that the row produced no transcript.
func (l *Ledger) SetTranscriptPath(row int, path string) error {
	if row < 1 || row > len(l.rows) {
		return fmt.Errorf("ledger row %d out of range (1-%d)", row, len(l.rows))
	}
	l.rows[row-1][l.outputIdx] = path
	return nil
}

// Save replaces the ledger file atomically with the in-memory content.
func (l *Ledger) Save() error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(l.path); err == nil {
		mode = info.Mode().Perm()
	}
	return fileutil.WriteAtomicFunc(l.path, mode, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(l.header); err != nil {
			return err
		}
		if err := writer.WriteAll(l.rows); err != nil {
			return err
		}
		return writer.Error()
	})
}
