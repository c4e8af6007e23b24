// Package directory loads the static ticker directory: a read-only mapping
// from a display label such as "Walt Disney Company (DIS)" to the ticker
// symbol and company name the query service matches on.
package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

// Entry is one tracked equity.
type Entry struct {
	Ticker  string `json:"ticker"`
	Company string `json:"company"`
}

// Directory maps display labels to tracked equities. It is loaded once at
// startup and never mutated afterwards.
type Directory struct {
	entries map[string]Entry
}

// Load reads the directory from a JSON file shaped as
// {"Walt Disney Company (DIS)": {"ticker": "DIS", "company": "Walt Disney Company"}, ...}.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticker directory %s: %w", path, err)
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse ticker directory %s: %w", path, err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("ticker directory %s is empty", path)
	}

	for label, e := range entries {
		if e.Ticker == "" || e.Company == "" {
			return nil, fmt.Errorf("ticker directory entry %q is missing ticker or company", label)
		}
	}

	logrus.Infof("Loaded %d entries from ticker directory %s", len(entries), path)
	return &Directory{entries: entries}, nil
}

// Lookup resolves a display label to its entry.
func (d *Directory) Lookup(label string) (Entry, bool) {
	e, ok := d.entries[label]
	return e, ok
}

// Labels returns all display labels in sorted order.
func (d *Directory) Labels() []string {
	labels := make([]string, 0, len(d.entries))
	for label := range d.entries {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Cashtags returns the "$TICKER" form of every tracked symbol, sorted.
// Used as the default Twitter stream subscription.
func (d *Directory) Cashtags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, e := range d.entries {
		tag := "$" + e.Ticker
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}
