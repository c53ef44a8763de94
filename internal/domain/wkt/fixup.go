package wkt

import (
	"sort"
	"strings"
)

// canonicalOrder lists, per compound keyword, the order in which child
// keywords must appear. Index 0 is reserved for the leading name leaf.
var canonicalOrder = map[string][]string{
	"PROJCS":     {"", "GEOGCS", "PROJECTION", "PARAMETER", "UNIT", "AXIS", "AUTHORITY", "EXTENSION"},
	"GEOGCS":     {"", "DATUM", "PRIMEM", "UNIT", "AXIS", "AUTHORITY", "EXTENSION"},
	"DATUM":      {"", "SPHEROID", "TOWGS84", "AUTHORITY", "EXTENSION"},
	"SPHEROID":   {"", "AUTHORITY"},
	"PRIMEM":     {"", "AUTHORITY"},
	"UNIT":       {"", "AUTHORITY"},
	"GEOCCS":     {"", "DATUM", "PRIMEM", "UNIT", "AXIS", "AUTHORITY", "EXTENSION"},
	"VERT_CS":    {"", "VERT_DATUM", "UNIT", "AXIS", "AUTHORITY", "EXTENSION"},
	"VERT_DATUM": {"", "AUTHORITY", "EXTENSION"},
	"LOCAL_CS":   {"", "LOCAL_DATUM", "UNIT", "AXIS", "AUTHORITY", "EXTENSION"},
	"COMPD_CS":   {"", "PROJCS", "GEOGCS", "GEOCCS", "VERT_CS", "LOCAL_CS", "AUTHORITY", "EXTENSION"},
}

// FixupOrdering reorders the children of known compound keywords,
// recursively, into canonical order. The sort is stable, so repeated
// keywords keep their relative order. Leaves and unknown keywords keep
// the rank of the child preceding them. Calling it twice is a no-op.
func (n *Node) FixupOrdering() error {
	for _, c := range n.children {
		if err := c.FixupOrdering(); err != nil {
			return err
		}
	}

	order, ok := canonicalOrder[strings.ToUpper(n.value)]
	if !ok || len(n.children) < 2 {
		return nil
	}

	ranks := make([]int, len(n.children))
	prev := 0
	for i, c := range n.children {
		rank := prev
		if i > 0 && !c.IsLeaf() {
			if r := indexFold(order, c.value); r > 0 {
				rank = r
			}
		}
		ranks[i] = rank
		prev = rank
	}

	idx := make([]int, len(n.children))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return ranks[idx[a]] < ranks[idx[b]]
	})

	sorted := make([]*Node, len(n.children))
	for i, j := range idx {
		sorted[i] = n.children[j]
	}
	n.children = sorted
	return nil
}

func indexFold(list []string, value string) int {
	for i, v := range list {
		if v != "" && strings.EqualFold(v, value) {
			return i
		}
	}
	return -1
}
