package normalize

import (
	"sort"
	"sync"
)

// AnomalyCounter tallies normalization anomalies (suspected PDF
// spacing artifacts, unparseable names) per key. One counter is
// created per batch run and discarded with it.
type AnomalyCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewAnomalyCounter creates an empty counter.
func NewAnomalyCounter() *AnomalyCounter {
	return &AnomalyCounter{counts: make(map[string]int)}
}

// Inc increments the tally for key.
func (c *AnomalyCounter) Inc(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
}

// Total returns the sum of all tallies.
func (c *AnomalyCounter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for _, v := range c.counts {
		n += v
	}
	return n
}

// Top returns up to n keys by descending count, for diagnostics.
func (c *AnomalyCounter) Top(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.counts))
	for k := range c.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c.counts[keys[i]] != c.counts[keys[j]] {
			return c.counts[keys[i]] > c.counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
