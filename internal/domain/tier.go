package domain

import "strings"

// Tier is a priced ticket class with its own inventory pool.
// Available only moves through the store's atomic reserve/release;
// Total is reference data set at initialization.
type Tier struct {
	ID        string
	Available int
	Total     int
}

// NormalizeTierID lower-cases a tier identifier so "Gold" and "gold"
// address the same pool.
func NormalizeTierID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
