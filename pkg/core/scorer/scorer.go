// Package scorer computes the objective metrics for an assignment set. It is
// the single implementation shared by the solver's objective and by
// reporting - the two must never diverge.
package scorer

import (
	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/snapshot"
)

// Score computes the objective breakdown for an assignment set against a
// snapshot.
//
//   - CoverageGap: role slot positions left unfilled across all events.
//     Over-filled slots contribute nothing (the validator flags those).
//   - FairnessSpread: max minus min of per-person assignment counts over the
//     snapshot's candidate people. Spread rather than standard deviation: it
//     is integer-exact, stable to compare, and matches how operators read a
//     rota ("Dana has four shifts, Priya has one").
//   - PreferenceMismatch: assignments whose role is outside the person's
//     preferred set. People with no stated preference contribute nothing.
func Score(snap *snapshot.Snapshot, assignments []model.Assignment, weights model.Weights) model.ObjectiveBreakdown {
	breakdown := model.ObjectiveBreakdown{
		CoverageGap:        coverageGap(snap, assignments),
		FairnessSpread:     fairnessSpread(snap, assignments),
		PreferenceMismatch: preferenceMismatch(snap, assignments),
	}
	breakdown.Weighted = weights.Weighted(breakdown.CoverageGap, breakdown.FairnessSpread, breakdown.PreferenceMismatch)
	return breakdown
}

func coverageGap(snap *snapshot.Snapshot, assignments []model.Assignment) int {
	filled := make(map[string]map[string]int)
	for _, a := range assignments {
		if filled[a.EventID] == nil {
			filled[a.EventID] = make(map[string]int)
		}
		filled[a.EventID][a.Role]++
	}

	gap := 0
	for _, event := range snap.Events {
		for _, slot := range event.Slots {
			missing := slot.Count - filled[event.ID][slot.Role]
			if missing > 0 {
				gap += missing
			}
		}
	}
	return gap
}

func fairnessSpread(snap *snapshot.Snapshot, assignments []model.Assignment) int {
	candidates := snap.CandidatePeople()
	if len(candidates) == 0 {
		return 0
	}

	counts := make(map[string]int, len(candidates))
	for _, a := range assignments {
		counts[a.PersonID]++
	}

	minCount := -1
	maxCount := 0
	for _, id := range candidates {
		count := counts[id]
		if minCount < 0 || count < minCount {
			minCount = count
		}
		if count > maxCount {
			maxCount = count
		}
	}
	return maxCount - minCount
}

func preferenceMismatch(snap *snapshot.Snapshot, assignments []model.Assignment) int {
	mismatches := 0
	for _, a := range assignments {
		person := snap.PersonByID(a.PersonID)
		if person == nil {
			continue
		}
		if !person.Prefers(a.Role) {
			mismatches++
		}
	}
	return mismatches
}
