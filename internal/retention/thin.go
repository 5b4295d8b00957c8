package retention

import (
	"math"
	"sort"

	"github.com/raoulx24/dbkeeper/internal/snapshot"
)

// DefaultMaxPerDay is used when no limit is configured.
const DefaultMaxPerDay = 5

// DayGroup holds every snapshot of one calendar day, oldest first.
type DayGroup struct {
	DayKey    string
	Snapshots []snapshot.Snapshot
}

// GroupByDay buckets snapshots by day key. Groups come back in ascending
// day order and each group is sorted ascending by file name.
func GroupByDay(snaps []snapshot.Snapshot) []DayGroup {
	byDay := make(map[string][]snapshot.Snapshot)
	for _, s := range snaps {
		byDay[s.DayKey] = append(byDay[s.DayKey], s)
	}

	groups := make([]DayGroup, 0, len(byDay))
	for day, list := range byDay {
		sort.Slice(list, func(i, j int) bool { return list[i].FileName < list[j].FileName })
		groups = append(groups, DayGroup{DayKey: day, Snapshots: list})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].DayKey < groups[j].DayKey })

	return groups
}

// Thin splits a sorted day group into the snapshots to keep and the ones to
// delete. Groups at or under maxPerDay are kept whole. Otherwise the first
// and last snapshot survive plus maxPerDay-2 evenly spaced ones in between.
func Thin(group []snapshot.Snapshot, maxPerDay int) (keep, drop []snapshot.Snapshot) {
	maxPerDay = normalizeMax(maxPerDay)
	if len(group) <= maxPerDay {
		return group, nil
	}

	kept := keepIndexes(len(group), maxPerDay)
	for i, s := range group {
		if kept[i] {
			keep = append(keep, s)
		} else {
			drop = append(drop, s)
		}
	}
	return keep, drop
}

// keepIndexes returns the set of group indexes that survive thinning a
// group of count snapshots.
func keepIndexes(count, maxPerDay int) map[int]bool {
	kept := map[int]bool{0: true, count - 1: true}

	middle := count - 2
	slots := maxPerDay - 2
	if slots <= 0 || middle <= 0 {
		return kept
	}

	interval := float64(middle) / float64(slots+1)
	for i := 1; i <= slots; i++ {
		// math.Round rounds half away from zero; 2.5 must become 3
		idx := int(math.Round(float64(i)*interval)) - 1
		if idx >= 0 && idx < middle {
			kept[idx+1] = true
		}
	}
	return kept
}

func normalizeMax(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxPerDay
	case n < 2:
		return 2
	default:
		return n
	}
}
