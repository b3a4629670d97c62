package workflow

import (
	"sort"
	"time"

	"bitbucket.org/vendaops/salesops_backend/models"
)

// Transition is one normalized stage movement. Stage fields hold canonical
// keys; FromStage is empty when the CRM sent no prior stage (first touch).
type Transition struct {
	FromStage  string
	ToStage    string
	OccurredAt time.Time
	Owner      string
}

// TransitionSequence is a deal's in-window stage history, oldest first.
// Ephemeral: rebuilt on every scan, never persisted.
type TransitionSequence struct {
	DealId      string
	Owner       string
	Transitions []Transition
}

// BuildSequences groups stage-change events by deal, orders each group by
// occurred_at and resolves raw stage labels through the catalog. A deal
// carrying any unresolvable label is skipped whole (no partial case is ever
// written for it) and reported in the second return value.
func BuildSequences(events []models.DealActivity, catalog *models.StageCatalog) ([]TransitionSequence, []string) {
	byDeal := make(map[string][]models.DealActivity)
	for _, ev := range events {
		if ev.ActivityKind != models.ActivityKindStageChange {
			continue
		}
		byDeal[ev.DealId] = append(byDeal[ev.DealId], ev)
	}

	dealIds := make([]string, 0, len(byDeal))
	for id := range byDeal {
		dealIds = append(dealIds, id)
	}
	sort.Strings(dealIds)

	sequences := make([]TransitionSequence, 0, len(byDeal))
	var skipped []string

	for _, dealId := range dealIds {
		group := byDeal[dealId]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].OccurredAt.Equal(group[j].OccurredAt) {
				return group[i].ID < group[j].ID
			}
			return group[i].OccurredAt.Before(group[j].OccurredAt)
		})

		seq := TransitionSequence{DealId: dealId, Transitions: make([]Transition, 0, len(group))}
		ok := true
		for _, ev := range group {
			to, found := catalog.Normalize(ev.ToStage)
			if !found {
				ok = false
				break
			}
			from := ""
			if ev.FromStage != nil && *ev.FromStage != "" {
				from, found = catalog.Normalize(*ev.FromStage)
				if !found {
					ok = false
					break
				}
			}
			seq.Transitions = append(seq.Transitions, Transition{
				FromStage:  from,
				ToStage:    to,
				OccurredAt: ev.OccurredAt,
				Owner:      ev.OwnerEmail,
			})
		}
		if !ok {
			skipped = append(skipped, dealId)
			continue
		}
		if len(seq.Transitions) == 0 {
			continue
		}
		seq.Owner = seq.Transitions[len(seq.Transitions)-1].Owner
		sequences = append(sequences, seq)
	}
	return sequences, skipped
}
