// Package timeline orders the messages and escalations of a session into
// one chronological sequence.
package timeline

import (
	"iter"
	"slices"

	"github.com/shank50/supportbotai/internal/domain"
)

// Merge returns the timeline of messages and escalations, ascending by
// timestamp. Entries with equal timestamps keep the order in which they
// were supplied, messages before escalations. The sequence is recomputed
// from the inputs on every iteration and holds no state between them.
func Merge(messages []domain.Message, escalations []domain.Escalation) iter.Seq[domain.TimelineEntry] {
	return func(yield func(domain.TimelineEntry) bool) {
		entries := make([]domain.TimelineEntry, 0, len(messages)+len(escalations))
		for i := range messages {
			m := messages[i]
			entries = append(entries, domain.TimelineEntry{
				Kind:      domain.EntryKindMessage,
				Timestamp: m.CreatedAt,
				Message:   &m,
			})
		}
		for i := range escalations {
			e := escalations[i]
			entries = append(entries, domain.TimelineEntry{
				Kind:       domain.EntryKindEscalation,
				Timestamp:  e.CreatedAt,
				Escalation: &e,
			})
		}

		slices.SortStableFunc(entries, func(a, b domain.TimelineEntry) int {
			return a.Timestamp.Compare(b.Timestamp)
		})

		for _, entry := range entries {
			if !yield(entry) {
				return
			}
		}
	}
}

// Entries collects Merge into a slice.
func Entries(messages []domain.Message, escalations []domain.Escalation) []domain.TimelineEntry {
	out := slices.Collect(Merge(messages, escalations))
	if out == nil {
		out = []domain.TimelineEntry{}
	}
	return out
}
