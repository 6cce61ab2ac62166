package scancache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/parishworks/ticketing/internal/domain"
)

// Cache is a scanning device's local durable scan log, keyed by ticket
// id: at most one record per ticket, re-scans update in place. One
// device, one file, one writer; every mutation is flushed through an
// atomic rename so a crash never leaves a torn file.
type Cache struct {
	path string

	mu      sync.Mutex
	records map[string]domain.ScanRecord
}

// Open loads the log at path, creating an empty one if the file does
// not exist yet.
func Open(path string) (*Cache, error) {
	c := &Cache{
		path:    path,
		records: make(map[string]domain.ScanRecord),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scan cache: %w", err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.records); err != nil {
		return nil, fmt.Errorf("decode scan cache: %w", err)
	}
	return c, nil
}

// Record upserts a scan and persists the log before returning.
func (c *Cache) Record(rec domain.ScanRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.TicketID] = rec
	return c.flush()
}

// Get returns the record for a ticket, if any.
func (c *Cache) Get(ticketID string) (domain.ScanRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[ticketID]
	return rec, ok
}

// Unsynced returns records still waiting for a server verdict, oldest
// scan first.
func (c *Cache) Unsynced() []domain.ScanRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []domain.ScanRecord
	for _, rec := range c.records {
		if !rec.Synced {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScannedAt.Before(out[j].ScannedAt)
	})
	return out
}

// Conflicts returns the records flagged for manual reconciliation.
func (c *Cache) Conflicts() []domain.ScanRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []domain.ScanRecord
	for _, rec := range c.records {
		if rec.Conflict {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScannedAt.Before(out[j].ScannedAt)
	})
	return out
}

// apply updates a record with the server's verdict and persists.
func (c *Cache) apply(ticketID string, update func(*domain.ScanRecord)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[ticketID]
	if !ok {
		return nil
	}
	update(&rec)
	c.records[ticketID] = rec
	return c.flush()
}

func (c *Cache) flush() error {
	data, err := json.MarshalIndent(c.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scan cache: %w", err)
	}
	if err := atomic.WriteFile(c.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write scan cache: %w", err)
	}
	return nil
}
