// Package catalog loads the mobile internet bundle catalog and builds the
// upgrade/downgrade comparison block appended to the model context.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// CSV column names, matched case-insensitively.
const (
	colType   = "internet type"
	colFamily = "internet bundle type"
	colName   = "internet bundle"
	colPrice  = "price(egp)"
	colDial   = "to subscribe call"
	colQuota  = "inclusive volume(mbs)"

	mobileInternetType = "mobile internet"
)

// Entry is one mobile internet bundle.
type Entry struct {
	// Name is the bundle name (e.g. "GO 20000").
	Name string
	// QuotaMB is the inclusive data volume; always > 0.
	QuotaMB int
	// PriceEGP is nil when the price is missing or not a number.
	PriceEGP *float64
	// Family is the bundle type (e.g. "GO", "Mega").
	Family string
	// Dial is the subscription short code.
	Dial string
}

// Catalog is the immutable list of bundles in file order.
type Catalog struct {
	entries []Entry
}

// New wraps entries in a Catalog.
func New(entries []Entry) *Catalog {
	return &Catalog{entries: entries}
}

// Entries returns the bundles in file order.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	return c.entries
}

// Len reports the number of bundles.
func (c *Catalog) Len() int {
	return len(c.Entries())
}

// Load reads the catalog CSV at path. A missing or malformed file yields an
// empty catalog and a WARN log.
func Load(path string, log *slog.Logger) *Catalog {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("catalog: file not found, comparisons disabled", slog.String("path", path))
		} else {
			log.Warn("catalog: cannot open file", slog.String("path", path), slog.String("error", err.Error()))
		}
		return New(nil)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		log.Warn("catalog: cannot parse file", slog.String("path", path), slog.String("error", err.Error()))
		return New(nil)
	}
	log.Info("catalog: loaded", slog.String("path", path), slog.Int("bundles", len(entries)))
	return New(entries)
}

// Parse decodes catalog rows, keeping only named mobile internet bundles
// (or rows with no type) whose quota is an all-digit positive integer.
func Parse(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	var out []Entry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read row: %w", err)
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		name, quotaRaw := get(colName), get(colQuota)
		if name == "" || !isDigits(quotaRaw) {
			continue
		}
		quota, err := strconv.Atoi(quotaRaw)
		if err != nil || quota <= 0 {
			continue
		}
		if t := get(colType); t != "" && !strings.EqualFold(t, mobileInternetType) {
			continue
		}

		e := Entry{Name: name, QuotaMB: quota, Family: get(colFamily), Dial: get(colDial)}
		if p, err := strconv.ParseFloat(get(colPrice), 64); err == nil {
			e.PriceEGP = &p
		}
		out = append(out, e)
	}
	return out, nil
}

// isDigits reports whether s is non-empty and made of ASCII digits only.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
