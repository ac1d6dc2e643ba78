package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadCSV loads a CSV file into a Table. All cells are kept as trimmed
// text; typing happens later in the cleaning stages. The delimiter is
// sniffed from the header line among ',', ';' and tab unless forced.
func ReadCSV(path string, delimiter rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return readCSV(f, path, delimiter)
}

func readCSV(f io.Reader, path string, delimiter rune) (*Table, error) {
	br := &headerBuffer{r: f}
	delim := delimiter
	if delim == 0 {
		delim = sniffDelimiter(br.PeekLine())
	}
	r := csv.NewReader(br)
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %s: file is empty", path)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		row := make([]string, len(cols))
		for i := range row {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return New(cols, rows), nil
}

// headerBuffer lets us peek at the first line for delimiter sniffing
// without consuming it from the underlying reader.
type headerBuffer struct {
	r      io.Reader
	peeked []byte
	pos    int
	done   bool
}

func (h *headerBuffer) PeekLine() string {
	if h.done {
		return string(h.peeked)
	}
	buf := make([]byte, 4096)
	n, _ := io.ReadFull(h.r, buf)
	h.peeked = buf[:n]
	h.done = true
	if i := strings.IndexByte(string(h.peeked), '\n'); i >= 0 {
		return string(h.peeked[:i])
	}
	return string(h.peeked)
}

func (h *headerBuffer) Read(p []byte) (int, error) {
	if h.pos < len(h.peeked) {
		n := copy(p, h.peeked[h.pos:])
		h.pos += n
		return n, nil
	}
	return h.r.Read(p)
}

func sniffDelimiter(headerLine string) rune {
	best := ','
	bestCount := strings.Count(headerLine, ",")
	if n := strings.Count(headerLine, ";"); n > bestCount {
		best, bestCount = ';', n
	}
	if n := strings.Count(headerLine, "\t"); n > bestCount {
		best = '\t'
	}
	return best
}
