package index

import "sort"

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedTerms returns the keys of counts in ascending order.
func (d DocTerms) SortedTerms() []string {
	return sortedKeys(d.Counts)
}
