// Package quest resolves quest prerequisite chains.
package quest

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hyperengineering/fableforge/internal/types"
)

// ErrCycle indicates the prerequisite graph contains a cycle.
var ErrCycle = errors.New("prerequisite cycle detected")

// Chain returns the prerequisite closure of the given quest in dependency
// order: every quest appears after all of its prerequisites, with the
// requested quest last.
//
// Algorithm: collect the closure by walking prerequisite edges, then run
// Kahn's algorithm over the collected subgraph. Prerequisites referencing
// quests outside the project (or deleted ones) are skipped rather than
// failing the whole chain.
func Chain(quests []types.Quest, questID string) ([]types.Quest, error) {
	byID := make(map[string]types.Quest, len(quests))
	for _, q := range quests {
		byID[q.ID] = q
	}

	start, ok := byID[questID]
	if !ok {
		return nil, fmt.Errorf("quest %s not in quest set", questID)
	}

	// Collect the closure reachable via prerequisite edges.
	closure := map[string]types.Quest{}
	stack := []types.Quest{start}
	for len(stack) > 0 {
		q := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := closure[q.ID]; seen {
			continue
		}
		closure[q.ID] = q
		for _, preID := range q.PrerequisiteIDs {
			if pre, ok := byID[preID]; ok {
				stack = append(stack, pre)
			}
		}
	}

	// Kahn's algorithm: prerequisites have no unmet in-edges first.
	inDegree := make(map[string]int, len(closure))
	dependents := make(map[string][]string) // prerequisite -> quests requiring it
	for id, q := range closure {
		if _, exists := inDegree[id]; !exists {
			inDegree[id] = 0
		}
		for _, preID := range q.PrerequisiteIDs {
			if _, inClosure := closure[preID]; !inClosure {
				continue
			}
			inDegree[id]++
			dependents[preID] = append(dependents[preID], id)
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	// Deterministic order among ties: ULIDs sort by creation time.
	sort.Strings(queue)

	ordered := make([]types.Quest, 0, len(closure))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		ordered = append(ordered, closure[id])

		next := dependents[id]
		sort.Strings(next)
		for _, depID := range next {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if len(ordered) != len(closure) {
		return nil, ErrCycle
	}

	return ordered, nil
}
