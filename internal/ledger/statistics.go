package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/veritrail/veritrail/internal/domain"
)

const topN = 5

// Statistics recomputes aggregate counts from the store on every call.
// Counters are not maintained incrementally, which trades a full scan for
// freedom from stale-counter bugs.
func (l *Ledger) Statistics(ctx context.Context) (*domain.LedgerStatistics, error) {
	entries, err := l.store.List(ctx, domain.EntryFilter{}, domain.QueryOptions{
		SortBy:          domain.SortByCreatedAt,
		ExcludeChanges:  true,
		ExcludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for statistics: %w", err)
	}

	stats := &domain.LedgerStatistics{
		TotalEntries: len(entries),
		ByAction:     make(map[domain.Action]int),
		ByUser:       make(map[string]int),
		ByPriority:   make(map[domain.Priority]int),
	}
	for _, e := range entries {
		stats.ByAction[e.Action]++
		stats.ByUser[e.UserID]++
		stats.ByPriority[e.Priority]++
	}

	stats.TopUsers = topCounts(stats.ByUser)
	actionCounts := make(map[string]int, len(stats.ByAction))
	for a, n := range stats.ByAction {
		actionCounts[string(a)] = n
	}
	stats.TopActions = topCounts(actionCounts)

	return stats, nil
}

func topCounts[K ~string](counts map[K]int) []domain.CountedKey {
	out := make([]domain.CountedKey, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.CountedKey{Key: string(k), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
