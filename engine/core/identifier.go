package core

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Registry keeps track of live GPU resources so that leaks can be reported at shutdown.
type Registry struct {
	owners map[uuid.UUID]string
}

func NewRegistry() *Registry {
	return &Registry{owners: make(map[uuid.UUID]string)}
}

// Acquire hands out a new id for the named owner.
func (r *Registry) Acquire(owner string) uuid.UUID {
	id := uuid.New()
	r.owners[id] = owner
	return id
}

// Track registers an id created elsewhere.
func (r *Registry) Track(id uuid.UUID, owner string) {
	r.owners[id] = owner
}

func (r *Registry) Release(id uuid.UUID) error {
	if _, ok := r.owners[id]; !ok {
		return errors.Newf("identifier %s is not registered, nothing was done", id)
	}
	delete(r.owners, id)
	return nil
}

func (r *Registry) Len() int {
	return len(r.owners)
}

// Live returns the owner names still holding an id, sorted.
func (r *Registry) Live() []string {
	out := make([]string, 0, len(r.owners))
	for _, owner := range r.owners {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out
}
