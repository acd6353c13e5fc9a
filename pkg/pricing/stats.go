package pricing

// Stats counts price lookups for one region
type Stats struct {
	Success int
	Failure int
	Cache   int
}

func (c *Client) updateStats(region string, update func(*Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[region]
	if !ok {
		s = &Stats{}
		c.stats[region] = s
	}
	update(s)
}

// GetAPIStats returns a copy of the lookup statistics by region
func (c *Client) GetAPIStats() map[string]Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	statsCopy := make(map[string]Stats, len(c.stats))
	for region, s := range c.stats {
		statsCopy[region] = *s
	}
	return statsCopy
}
