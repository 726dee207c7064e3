// Package rank implements the Filter/Ranker: the
// ignore/avoid/prefer regex algebra and scoring that selects one
// victim from a scan. Grounded on
// original_source/src/killer/selector.rs, adapted to the design's
// additive prefer/avoid semantics (see DESIGN.md, Open Question 1).
package rank

import (
	"regexp"

	"github.com/oomguard/oomguard/config"
	"github.com/oomguard/oomguard/procfs"
)

// preferAvoidBiasScore is the fixed additive bias applied for a prefer
// or avoid match in Score mode: large enough that a preferred process
// always outranks any non-preferred peer of ordinary size.
const preferAvoidBiasScore = 1000

// minRSSFloorKiB is the sanity floor below which a selection is
// considered cache/kernel-resident pressure rather than
// user-process-attributable.
const minRSSFloorKiB = 1024 // 1 MiB

// Stats summarizes one scan's filtering outcome, for status reports
// and debug logs.
type Stats struct {
	Total int
	Killable int
	Preferred int
	Avoided int
	Ignored int
}

// scored pairs a record with its adjusted score for sorting.
type scored struct {
	rec procfs.Record
	score int64
}

// Select applies the ignore/avoid/prefer algebra and returns the
// chosen victim (if any) along with statistics about the candidate
// pool.
func Select(records []procfs.Record, filters config.Filters, mode config.SortMode, ignoreRoot bool) (*procfs.Record, Stats) {
	stats := Stats{Total: len(records)}

	survivors := make([]procfs.Record, 0, len(records))
	for _, r := range records {
		if matchesAny(filters.Ignore, r) {
			stats.Ignored++
			continue
		}
		if ignoreRoot && r.UID == 0 {
			continue
		}
		if matchesAny(filters.Prefer, r) {
			stats.Preferred++
		}
		if matchesAny(filters.Avoid, r) {
			stats.Avoided++
		}
		survivors = append(survivors, r)
	}
	stats.Killable = len(survivors)

	if len(survivors) == 0 {
		return nil, stats
	}

	scoredList := make([]scored, 0, len(survivors))
	for _, r := range survivors {
		scoredList = append(scoredList, scored{rec: r, score: adjustedScore(r, filters, mode)})
	}

	best := scoredList[0]
	for _, s := range scoredList[1:] {
		if better(s, best) {
			best = s
		}
	}

	if mode == config.SortByRSS && best.rec.RSSKiB <= minRSSFloorKiB {
		// Below the floor, the pressure is cache/kernel-resident, not
		// attributable to a single user process.
		return nil, stats
	}

	victim := best.rec
	return &victim, stats
}

// better implements the tie-break order: highest adjusted score,
// then highest raw RSS, then highest PID.
func better(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.rec.RSSKiB != b.rec.RSSKiB {
		return a.rec.RSSKiB > b.rec.RSSKiB
	}
	return a.rec.PID > b.rec.PID
}

// adjustedScore computes the base score plus prefer/avoid bias.
// Prefer and avoid are additive: a process matching both nets back to
// its base score (see DESIGN.md, Open Question 1).
func adjustedScore(r procfs.Record, filters config.Filters, mode config.SortMode) int64 {
	var base, bias int64
	if mode == config.SortByRSS {
		base = int64(r.RSSKiB)
		bias = base * 2
	} else {
		base = int64(r.OOMScore)
		bias = preferAvoidBiasScore
	}

	score := base
	if matchesAny(filters.Prefer, r) {
		score += bias
	}
	if matchesAny(filters.Avoid, r) {
		score -= bias
	}
	return score
}

func matchesAny(patterns []*regexp.Regexp, r procfs.Record) bool {
	for _, p := range patterns {
		if p.MatchString(r.Comm) || p.MatchString(r.Cmdline) {
			return true
		}
	}
	return false
}
