package estimation

import (
	"sort"
	"time"

	"github.com/golang/geo/r3"
)

// ModelID identifies a Model within an Arena. IDs are never reused, so equality of IDs is
// identity of the tracked edge.
type ModelID uint64

// NoModel is the zero ModelID; no arena ever hands it out.
const NoModel ModelID = 0

// Arena owns every edge model. Gaps, scorers and the arbiter refer to models only by ModelID.
// An Arena is not safe for concurrent use; the planner guards it with its tick lock.
type Arena struct {
	models map[ModelID]*Model
	next   ModelID
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{models: map[ModelID]*Model{}}
}

// Create initializes a model from its first measurement and returns its new identifier.
func (a *Arena) Create(side Side, z Measurement, t time.Time) (ModelID, error) {
	id := a.next + 1
	m, err := NewModel(id, side, z, t)
	if err != nil {
		return NoModel, err
	}
	a.next = id
	a.models[id] = m
	return id, nil
}

// Get returns the model for id.
func (a *Arena) Get(id ModelID) (*Model, bool) {
	m, ok := a.models[id]
	return m, ok
}

// Remove ends the lifetime of a model. Removing an unknown id is a no-op.
func (a *Arena) Remove(id ModelID) {
	delete(a.models, id)
}

// Retain removes every model not in keep and returns how many were removed.
func (a *Arena) Retain(keep ...ModelID) int {
	keepSet := make(map[ModelID]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	removed := 0
	for id := range a.models {
		if _, ok := keepSet[id]; !ok {
			delete(a.models, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live models.
func (a *Arena) Len() int {
	return len(a.models)
}

// IDs returns the live identifiers in ascending order.
func (a *Arena) IDs() []ModelID {
	ids := make([]ModelID, 0, len(a.models))
	for id := range a.models {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FreezeAll snapshots every live model with egoVel folded in, in ascending ID order.
func (a *Arena) FreezeAll(egoVel r3.Vector) []Frozen {
	ids := a.IDs()
	out := make([]Frozen, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.models[id].FreezeWith(egoVel))
	}
	return out
}

// Reset drops every model. Identifiers keep increasing after a reset.
func (a *Arena) Reset() {
	a.models = map[ModelID]*Model{}
}
