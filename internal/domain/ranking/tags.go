package ranking

import "sort"

// TagCount is the number of stores carrying a tag.
type TagCount struct {
	Tag   string
	Count int
}

// Unwind flattens per-store tag sets into individual occurrences.
// A tag repeated within one store counts once.
func Unwind(tagSets [][]string) []string {
	var out []string
	for _, set := range tagSets {
		seen := make(map[string]struct{}, len(set))
		for _, t := range set {
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// GroupCount groups occurrences by value and counts them.
func GroupCount(tags []string) []TagCount {
	idx := make(map[string]int)
	var out []TagCount
	for _, t := range tags {
		if i, ok := idx[t]; ok {
			out[i].Count++
			continue
		}
		idx[t] = len(out)
		out = append(out, TagCount{Tag: t, Count: 1})
	}
	return out
}

// SortTags orders by count desc, then tag asc.
func SortTags(counts []TagCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Tag < counts[j].Tag
	})
}

// TagList runs Unwind, GroupCount and SortTags over all store tag sets.
func TagList(tagSets [][]string) []TagCount {
	counts := GroupCount(Unwind(tagSets))
	SortTags(counts)
	return counts
}
