package solver

import (
	"context"
	"time"

	"github.com/jakechorley/rotasolve/pkg/core/model"
	"github.com/jakechorley/rotasolve/pkg/core/scorer"
)

// searchState is the mutable state of one branch-and-bound run. Each solve
// call builds its own state from an immutable snapshot; nothing is shared
// between solves or organizations.
type searchState struct {
	m *solveModel

	// chosen holds the person assigned to each position, "" for uncovered
	chosen []string

	// intervals tracks each person's assigned event intervals
	intervals map[string][]model.Interval

	// starts tracks each person's assigned event start times
	starts map[string]map[time.Time]int

	// counts tracks per-person assignment counts
	counts map[string]int

	gap      int
	mismatch int

	// incumbent
	best      []model.Assignment
	bestScore model.ObjectiveBreakdown
	haveBest  bool

	nodes int64
}

func newSearchState(m *solveModel) *searchState {
	s := &searchState{
		m:         m,
		chosen:    make([]string, len(m.positions)),
		intervals: make(map[string][]model.Interval),
		starts:    make(map[string]map[time.Time]int),
		counts:    make(map[string]int),
	}

	// Pre-assign locked positions; the search never branches on them
	for i := range m.positions {
		if locked := m.positions[i].lockedPerson; locked != "" {
			s.place(i, locked)
		}
	}
	return s
}

func (s *searchState) place(posIdx int, personID string) {
	pos := &s.m.positions[posIdx]
	s.chosen[posIdx] = personID
	s.intervals[personID] = append(s.intervals[personID], pos.event.Time)
	if s.starts[personID] == nil {
		s.starts[personID] = make(map[time.Time]int)
	}
	s.starts[personID][pos.event.Time.Start]++
	s.counts[personID]++
	if person := s.m.snap.PersonByID(personID); person != nil && !person.Prefers(pos.role) {
		s.mismatch++
	}
}

func (s *searchState) unplace(posIdx int) {
	personID := s.chosen[posIdx]
	pos := &s.m.positions[posIdx]
	s.chosen[posIdx] = ""

	ivs := s.intervals[personID]
	s.intervals[personID] = ivs[:len(ivs)-1]
	s.starts[personID][pos.event.Time.Start]--
	if s.starts[personID][pos.event.Time.Start] == 0 {
		delete(s.starts[personID], pos.event.Time.Start)
	}
	s.counts[personID]--
	if person := s.m.snap.PersonByID(personID); person != nil && !person.Prefers(pos.role) {
		s.mismatch--
	}
}

// admissible reports whether assigning the person to the position keeps every
// hard constraint satisfiable: no overlapping booking, rest gap respected,
// and no rolling-window limit exceeded
func (s *searchState) admissible(posIdx int, personID string) bool {
	pos := &s.m.positions[posIdx]
	rules := s.m.rules[personID]

	for _, iv := range s.intervals[personID] {
		if iv.Overlaps(pos.event.Time) {
			return false
		}
		if rules.restGap > 0 && iv.GapTo(pos.event.Time) < rules.restGap {
			return false
		}
	}

	for _, c := range rules.maxPer {
		if s.windowExceeded(personID, pos.event.Time.Start, c.Period, c.MaxPerPeriod) {
			return false
		}
	}

	return true
}

// windowExceeded checks whether adding an assignment starting at candidate
// would push any rolling window of the given period past the limit
func (s *searchState) windowExceeded(personID string, candidate time.Time, period time.Duration, limit int) bool {
	anchors := []time.Time{candidate}
	for start := range s.starts[personID] {
		anchors = append(anchors, start)
	}

	for _, anchor := range anchors {
		count := 0
		if !candidate.Before(anchor) && candidate.Before(anchor.Add(period)) {
			count++
		}
		for start, n := range s.starts[personID] {
			if !start.Before(anchor) && start.Before(anchor.Add(period)) {
				count += n
			}
		}
		if count > limit {
			return true
		}
	}
	return false
}

// partialCost is a lower bound on the final weighted objective of any leaf
// below the current node. Coverage and preference costs only grow as the
// search descends, and fairness spread is bounded below by zero.
func (s *searchState) partialCost() float64 {
	return s.m.weights.Coverage*float64(s.gap) + s.m.weights.Preference*float64(s.mismatch)
}

// search runs the deterministic branch-and-bound. Positions are visited in
// model order; at each free position every admissible candidate is tried in
// ascending person ID order, then the uncovered branch. The incumbent is
// replaced only on a strictly better objective, so ties keep the first
// solution found in canonical order and repeated runs on identical input
// produce byte-identical output.
//
// Returns context error if the budget expired or the caller cancelled.
func (s *searchState) search(ctx context.Context, posIdx int) error {
	s.nodes++
	if s.nodes%64 == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if s.haveBest && s.partialCost() >= s.bestScore.Weighted {
		return nil
	}

	if posIdx == len(s.m.positions) {
		s.recordLeaf()
		return nil
	}

	pos := &s.m.positions[posIdx]

	if pos.lockedPerson != "" {
		return s.search(ctx, posIdx+1)
	}

	// Symmetry breaking: seats of the same slot are interchangeable, so
	// candidates within a slot are taken in strictly ascending ID order
	floor := ""
	if posIdx > 0 && s.m.positions[posIdx-1].slotID == pos.slotID && s.m.positions[posIdx-1].lockedPerson == "" {
		floor = s.chosen[posIdx-1]
		if floor == "" {
			// An earlier seat of this slot was left uncovered; this one
			// stays uncovered too (equivalent up to seat order)
			s.gap++
			err := s.search(ctx, posIdx+1)
			s.gap--
			return err
		}
	}

	for _, candidate := range pos.candidates {
		if floor != "" && candidate <= floor {
			continue
		}
		if !s.admissible(posIdx, candidate) {
			continue
		}

		s.place(posIdx, candidate)
		err := s.search(ctx, posIdx+1)
		s.unplace(posIdx)
		if err != nil {
			return err
		}
	}

	// Uncovered branch: leave the seat empty and pay the coverage cost
	s.gap++
	err := s.search(ctx, posIdx+1)
	s.gap--
	return err
}

// recordLeaf scores a complete assignment set and keeps it if strictly better
func (s *searchState) recordLeaf() {
	assignments := s.buildAssignments()
	score := scorer.Score(s.m.snap, assignments, s.m.weights)

	if !s.haveBest || score.Weighted < s.bestScore.Weighted {
		s.best = assignments
		s.bestScore = score
		s.haveBest = true
	}
}

// buildAssignments materializes the current chosen positions as a sorted
// assignment set with deterministic IDs
func (s *searchState) buildAssignments() []model.Assignment {
	lockedKeys := make(map[model.AssignmentKey]bool, len(s.m.lockedAssignments))
	for _, a := range s.m.lockedAssignments {
		lockedKeys[a.Key()] = true
	}

	var assignments []model.Assignment
	for i, personID := range s.chosen {
		if personID == "" {
			continue
		}
		pos := &s.m.positions[i]
		a := model.Assignment{
			ID:       assignmentID(personID, pos.event.ID, pos.role),
			PersonID: personID,
			EventID:  pos.event.ID,
			Role:     pos.role,
		}
		a.Locked = lockedKeys[a.Key()]
		assignments = append(assignments, a)
	}
	model.SortAssignments(assignments)
	return assignments
}
