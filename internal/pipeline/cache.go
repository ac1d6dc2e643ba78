package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/calidata/opsaudit/internal/clean"
	"github.com/calidata/opsaudit/internal/health"
	"github.com/calidata/opsaudit/internal/merge"
	"github.com/calidata/opsaudit/internal/report"
	"github.com/calidata/opsaudit/internal/table"
)

// Cache stores finished runs keyed by input fingerprint. Strictly a
// performance shortcut: identical bytes in, identical audit out.
type Cache struct {
	Dir string
}

// NewCache makes sure the directory exists.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir cache dir: %w", err)
	}
	return &Cache{Dir: dir}, nil
}

// fingerprint hashes the three input files together with the policy and
// weights, so a config change invalidates the entry too.
func fingerprint(in Inputs, pol clean.Policy, w health.Weights) (string, error) {
	h := sha256.New()
	for _, path := range []string{in.Inventory, in.Transactions, in.Feedback} {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("fingerprint input: %w", err)
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", fmt.Errorf("fingerprint input: %w", err)
		}
		f.Close()
		h.Write([]byte{0})
	}
	fmt.Fprintf(h, "policy=%s/%v/%v;weights=%v/%v/%v",
		pol.CostOutliers, pol.IQRFactor, pol.MaxDeliveryDays,
		w.Null, w.Duplicate, w.Outlier)
	return hex.EncodeToString(h.Sum(nil)), nil
}

type cachedTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type cachedDataset struct {
	Name        string             `json:"name"`
	Raw         cachedTable        `json:"raw"`
	Clean       cachedTable        `json:"clean"`
	Health      health.Report      `json:"health"`
	Corrections []clean.Correction `json:"corrections"`
}

type cacheEntry struct {
	RunID     string          `json:"run_id"`
	CreatedAt time.Time       `json:"created_at"`
	Datasets  []cachedDataset `json:"datasets"`
	Master    cachedTable     `json:"master"`
	Metrics   merge.Metrics   `json:"metrics"`
}

func freezeTable(t *table.Table) cachedTable {
	ct := cachedTable{Columns: t.Columns(), Rows: make([][]string, t.Len())}
	for i := 0; i < t.Len(); i++ {
		ct.Rows[i] = t.Row(i)
	}
	return ct
}

func thawTable(ct cachedTable) *table.Table {
	return table.New(ct.Columns, ct.Rows)
}

func (c *Cache) path(fp string) string {
	return filepath.Join(c.Dir, fp+".json")
}

// Get returns a cached run, or false on miss or an unreadable entry.
func (c *Cache) Get(fp string) (*Result, bool) {
	b, err := os.ReadFile(c.path(fp))
	if err != nil {
		return nil, false
	}
	var e cacheEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, false
	}
	res := &Result{
		RunID:   e.RunID,
		Master:  thawTable(e.Master),
		Metrics: e.Metrics,
	}
	for _, d := range e.Datasets {
		res.Datasets = append(res.Datasets, report.Dataset{
			Name:        d.Name,
			Raw:         thawTable(d.Raw),
			Clean:       thawTable(d.Clean),
			Health:      d.Health,
			Corrections: d.Corrections,
		})
	}
	return res, true
}

// Put persists a run under its fingerprint via tmp file and rename.
func (c *Cache) Put(fp string, res *Result) error {
	e := cacheEntry{
		RunID:     res.RunID,
		CreatedAt: time.Now().UTC(),
		Master:    freezeTable(res.Master),
		Metrics:   res.Metrics,
	}
	for _, d := range res.Datasets {
		e.Datasets = append(e.Datasets, cachedDataset{
			Name:        d.Name,
			Raw:         freezeTable(d.Raw),
			Clean:       freezeTable(d.Clean),
			Health:      d.Health,
			Corrections: d.Corrections,
		})
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir cache dir: %w", err)
	}
	tmp := c.path(fp) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, c.path(fp)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename cache entry: %w", err)
	}
	return nil
}
