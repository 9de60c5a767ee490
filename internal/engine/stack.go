package engine

import (
	"log"
	"sort"
	"strings"

	"github.com/bprzybysz/integra/internal/ledger"
)

// Stack window kinds.
const (
	WindowDay   = "day"
	WindowWeek  = "iso_week"
	WindowTotal = "total"
)

// StackResult is the summed final scores for one window. Groups maps a
// bucket key like "origin=planned" or "origin=planned,nature=job" to its
// subtotal; Total is always the ungrouped sum. Skipped counts tasks dropped
// for missing or malformed labels.
type StackResult struct {
	Window  string         `json:"window"`
	Key     string         `json:"key,omitempty"`
	GroupBy []string       `json:"group_by,omitempty"`
	Total   int            `json:"total"`
	Groups  map[string]int `json:"groups,omitempty"`
	Tasks   int            `json:"tasks"`
	Skipped int            `json:"skipped"`
}

// ValidateGroupBy rejects facets the aggregator cannot bucket on.
func ValidateGroupBy(groupBy []string) error {
	for _, g := range groupBy {
		if g != "origin" && g != "nature" {
			return ErrBadGroupBy
		}
	}
	return nil
}

// ComputeStack sums final task scores over an already-windowed set of closed
// tasks, bucketed by every combination of the requested facets plus the
// ungrouped total. Tasks with missing or malformed labels are skipped with a
// warning; aggregation never fails on bad records. Recomputing from the same
// task set always yields the same totals.
func ComputeStack(tasks []ledger.Task, groupBy []string) StackResult {
	normalized := normalizeGroupBy(groupBy)
	res := StackResult{GroupBy: normalized}
	if len(normalized) > 0 {
		res.Groups = make(map[string]int)
	}

	for i := range tasks {
		f, err := ledger.Parse(tasks[i].Labels)
		if err != nil {
			log.Printf("stack: skipping task %s: %v", tasks[i].ID, err)
			res.Skipped++
			continue
		}
		res.Total += f.Score
		res.Tasks++
		if res.Groups != nil {
			res.Groups[groupKey(normalized, f)] += f.Score
		}
	}
	return res
}

// normalizeGroupBy dedupes and fixes facet order so bucket keys are stable.
func normalizeGroupBy(groupBy []string) []string {
	seen := make(map[string]bool, len(groupBy))
	var out []string
	for _, g := range groupBy {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

func groupKey(facets []string, f ledger.Facets) string {
	parts := make([]string, 0, len(facets))
	for _, facet := range facets {
		switch facet {
		case "origin":
			parts = append(parts, "origin="+f.Origin)
		case "nature":
			parts = append(parts, "nature="+f.Nature)
		}
	}
	return strings.Join(parts, ",")
}
