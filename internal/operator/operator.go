// Package operator implements the constrained neighborhood mutation: pick
// one element to change, then propagate that change through the element
// dependency graph until every conditional arrangement downstream is legal
// again.
package operator

import (
	"math/rand"
	"strconv"

	"keyforge/internal/errs"
	"keyforge/internal/model"
)

const (
	maxPickAttempts          = 100
	maxPropagationIterations = 100
)

// Operator mutates a Decision in place against a fixed decision space and
// element DAG, both shared read-only across annealer threads.
type Operator struct {
	space *model.DecisionSpace
	dag   model.ElementDAG
	rng   *rand.Rand
}

// New builds an Operator. rng should be a thread-local generator; the
// Operator is not safe for concurrent use from multiple goroutines.
func New(space *model.DecisionSpace, dag model.ElementDAG, rng *rand.Rand) *Operator {
	return &Operator{space: space, dag: dag, rng: rng}
}

// Mutate re-arranges one randomly chosen element, restores conditional
// consistency downstream of it, and returns every element it touched.
func (o *Operator) Mutate(decision *model.Decision) (model.Changed, error) {
	element, candidate, found := o.pickChangeTarget(decision)
	if !found {
		return nil, nil
	}
	decision.Elements[element] = candidate
	changed := model.Changed{element}

	if err := o.propagate(decision, element, &changed); err != nil {
		return nil, err
	}
	return changed, nil
}

// pickChangeTarget makes up to maxPickAttempts attempts, each a uniformly
// random element with a reservoir-sampled legal alternative that differs
// from its current arrangement.
func (o *Operator) pickChangeTarget(decision *model.Decision) (model.Element, model.Arrangement, bool) {
	n := len(o.space.Elements)
	if n == 0 {
		return 0, model.Arrangement{}, false
	}
	for attempt := 0; attempt < maxPickAttempts; attempt++ {
		e := model.Element(o.rng.Intn(n))
		alternatives := o.space.Elements[e]
		if len(alternatives) == 0 {
			continue
		}
		current := decision.Elements[e]
		picked, ok := o.reservoirPick(decision, alternatives, current)
		if ok {
			return e, picked, true
		}
	}
	return 0, model.Arrangement{}, false
}

// reservoirPick uniformly samples one ConditionalArrangement among those
// that differ from current and whose conditions hold under decision.
func (o *Operator) reservoirPick(decision *model.Decision, alternatives []model.ConditionalArrangement, current model.Arrangement) (model.Arrangement, bool) {
	var chosen model.Arrangement
	count := 0
	for _, ca := range alternatives {
		if ca.Arrangement == current {
			continue
		}
		if !decision.Holds(ca) {
			continue
		}
		count++
		if o.rng.Intn(count) == 0 {
			chosen = ca.Arrangement
		}
	}
	return chosen, count > 0
}

// propagate walks the DAG breadth-first from downstream(element),
// re-legalizing every visited element against the mutated decision.
//
// Every node the BFS reaches is added to changed, even when its own
// Arrangement value turns out not to need reassignment: a node can be a
// pure Keys-slot reference to something upstream (e.g. "element copies
// position 0 of X_a"), in which case its Arrangement struct never changes
// but the *code* it linearizes to does, because that depends on X_a's
// keytuple, not on its own Arrangement value. The encoder's incremental
// path keys off changed, so under-reporting here would silently re-encode
// against a stale buffer.
func (o *Operator) propagate(decision *model.Decision, element model.Element, changed *model.Changed) error {
	visited := map[model.Element]bool{element: true}
	var queue []model.Element
	for _, v := range o.dag[element] {
		if !visited[v] {
			visited[v] = true
			queue = append(queue, v)
		}
	}

	iterations := 0
	for len(queue) > 0 {
		iterations++
		if iterations > maxPropagationIterations {
			return errs.PropagationOverflow(maxPropagationIterations)
		}
		u := queue[0]
		queue = queue[1:]

		alternatives := o.space.Elements[u]
		var winner *model.ConditionalArrangement
		for i := range alternatives {
			if decision.Holds(alternatives[i]) {
				winner = &alternatives[i]
				break
			}
		}
		if winner == nil {
			return errs.PropagationStuck(elementLabel(u))
		}

		if winner.Arrangement != decision.Elements[u] {
			// Among the candidates whose conditions hold, pick uniformly
			// (winner, found above by first-match, only decides whether a
			// change is needed at all).
			picked, ok := o.reservoirPick(decision, alternatives, decision.Elements[u])
			if !ok {
				picked = winner.Arrangement
			}
			decision.Elements[u] = picked
		}
		*changed = append(*changed, u)

		for _, v := range o.dag[u] {
			if !visited[v] {
				visited[v] = true
				queue = append(queue, v)
			}
		}
	}
	return nil
}

func elementLabel(e model.Element) string {
	return "#" + strconv.Itoa(int(e))
}
