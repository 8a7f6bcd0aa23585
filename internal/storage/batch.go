package storage

import (
	"context"
	"errors"
	"fmt"

	"streamswap-indexer/internal/domain"
)

// Mutation is a single staged write. Entity is nil for a removal.
type Mutation struct {
	Kind   domain.EntityKind
	ID     string
	Entity domain.Entity
}

// IsDelete reports whether the mutation removes the record.
func (m Mutation) IsDelete() bool {
	return m.Entity == nil
}

type mutationKey struct {
	kind domain.EntityKind
	id   string
}

// Batch collects the writes of one event so they can be committed together.
// Each (kind, id) appears at most once; a later write replaces an earlier one
// in place. Entities are read by the store at commit time.
type Batch struct {
	muts  []Mutation
	index map[mutationKey]int
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{index: make(map[mutationKey]int)}
}

// Put stages an upsert.
func (b *Batch) Put(e domain.Entity) {
	b.stage(Mutation{Kind: e.Kind(), ID: e.Key(), Entity: e})
}

// Delete stages a removal. Removing an absent record is a no-op.
func (b *Batch) Delete(kind domain.EntityKind, id string) {
	b.stage(Mutation{Kind: kind, ID: id})
}

func (b *Batch) stage(m Mutation) {
	k := mutationKey{m.Kind, m.ID}
	if i, ok := b.index[k]; ok {
		b.muts[i] = m
		return
	}
	b.index[k] = len(b.muts)
	b.muts = append(b.muts, m)
}

// Mutations returns the staged writes in staging order.
func (b *Batch) Mutations() []Mutation {
	return b.muts
}

// Len returns the number of staged writes.
func (b *Batch) Len() int {
	return len(b.muts)
}

// Get loads an entity and asserts its concrete type.
// Returns ErrNotFound if absent.
func Get[T domain.Entity](ctx context.Context, s EntityStore, kind domain.EntityKind, id string) (T, error) {
	var zero T
	e, err := s.Load(ctx, kind, id)
	if err != nil {
		return zero, err
	}
	v, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s %s has type %T", ErrInvalidInput, kind, id, e)
	}
	return v, nil
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
