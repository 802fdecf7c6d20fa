package model

// MergeTags merges incoming tags into existing ones under the earliest-data-
// wins rule: a key not already present is added, an existing key's value is
// never overwritten. Returns the merged map and the subset of incoming pairs
// that were actually added. Neither input map is mutated.
func MergeTags(existing, incoming map[string]string) (merged, added map[string]string) {
	merged = make(map[string]string, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	added = make(map[string]string)
	for k, v := range incoming {
		if _, ok := merged[k]; ok {
			continue
		}
		merged[k] = v
		added[k] = v
	}
	return merged, added
}
