package store

import (
	"context"
	"fmt"
	"time"
)

type opKind int

const (
	opInsert opKind = iota + 1
	opUpdate
	opDelete
)

func (k opKind) String() string {
	switch k {
	case opInsert:
		return "insert"
	case opUpdate:
		return "update"
	case opDelete:
		return "delete"
	}
	return "unknown"
}

// pendingOp is the latest staged state for one identity.
type pendingOp[T any] struct {
	kind   opKind
	entity *T // private copy
	origin *T // caller's value; receives identity and version after commit
}

// changeSet is the type-erased view the unit of work uses to flush repositories.
type changeSet interface {
	hasChanges() bool
	flush(ctx context.Context, b Batch, now time.Time) (int, func(), error)
	reset()
}

// Set is the generic staged Repository over a Table. Operations for the same
// identity collapse: an update after an add stays an add, and a remove after
// an add cancels both. A Set is not safe for concurrent use.
type Set[T any] struct {
	table   Table[T]
	mapping Mapping[T]

	pending map[int64]*pendingOp[T]
	order   []int64
	lastTmp int64
}

// NewSet creates an empty staged repository over table.
func NewSet[T any](table Table[T], mapping Mapping[T]) *Set[T] {
	return &Set[T]{
		table:   table,
		mapping: mapping,
		pending: make(map[int64]*pendingOp[T]),
	}
}

// GetByID implements Repository.
func (s *Set[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	if op, ok := s.pending[id]; ok {
		if op.kind == opDelete {
			return nil, s.mapping.NotFound
		}
		return s.mapping.Clone(op.entity), nil
	}
	if id <= 0 {
		return nil, s.mapping.NotFound
	}
	return s.table.Get(ctx, id)
}

// GetAll implements Repository.
func (s *Set[T]) GetAll(ctx context.Context) ([]*T, error) {
	return s.query(ctx, nil, nil)
}

// Find implements Repository.
func (s *Set[T]) Find(ctx context.Context, pred func(*T) bool) ([]*T, error) {
	return s.query(ctx, nil, pred)
}

// query merges committed rows matching filters with staged state. pred must
// accept only entities the filters would also accept, since staged entities
// are checked against pred alone.
func (s *Set[T]) query(ctx context.Context, filters []Filter, pred func(*T) bool) ([]*T, error) {
	rows, err := s.table.Scan(ctx, filters...)
	if err != nil {
		return nil, err
	}

	match := func(e *T) bool { return pred == nil || pred(e) }
	result := make([]*T, 0, len(rows)+len(s.order))
	seen := make(map[int64]struct{}, len(s.pending))

	for _, row := range rows {
		id := s.mapping.ID(row)
		if op, ok := s.pending[id]; ok {
			seen[id] = struct{}{}
			if op.kind == opDelete {
				continue
			}
			row = s.mapping.Clone(op.entity)
		}
		if match(row) {
			result = append(result, row)
		}
	}

	for _, id := range s.order {
		op := s.pending[id]
		if _, ok := seen[id]; ok || op.kind == opDelete {
			continue
		}
		if match(op.entity) {
			result = append(result, s.mapping.Clone(op.entity))
		}
	}

	return result, nil
}

// Add implements Repository.
func (s *Set[T]) Add(entity *T) error {
	if entity == nil {
		return fmt.Errorf("%w: nil %s", ErrInvalidEntity, s.mapping.Entity)
	}
	if s.mapping.ID(entity) != 0 {
		return fmt.Errorf("%w: %s already has identity %d", ErrInvalidEntity, s.mapping.Entity, s.mapping.ID(entity))
	}
	if err := s.validate(entity); err != nil {
		return err
	}

	s.lastTmp--
	id := s.lastTmp
	s.mapping.SetID(entity, id)
	s.stage(id, &pendingOp[T]{kind: opInsert, entity: s.mapping.Clone(entity), origin: entity})
	return nil
}

// Update implements Repository.
func (s *Set[T]) Update(entity *T) {
	if entity == nil {
		return
	}
	id := s.mapping.ID(entity)
	if id == 0 {
		return
	}

	if op, ok := s.pending[id]; ok {
		if op.kind == opDelete {
			return
		}
		op.entity = s.mapping.Clone(entity)
		op.origin = entity
		return
	}
	if id < 0 {
		return
	}

	s.stage(id, &pendingOp[T]{kind: opUpdate, entity: s.mapping.Clone(entity), origin: entity})
}

// Remove implements Repository.
func (s *Set[T]) Remove(entity *T) error {
	if entity == nil || s.mapping.ID(entity) == 0 {
		return s.mapping.NotFound
	}
	id := s.mapping.ID(entity)

	if op, ok := s.pending[id]; ok {
		switch op.kind {
		case opDelete:
			return s.mapping.NotFound
		case opInsert:
			s.unstage(id)
			return nil
		}
		op.kind = opDelete
		op.entity = s.mapping.Clone(entity)
		op.origin = nil
		return nil
	}
	if id < 0 {
		return s.mapping.NotFound
	}

	s.stage(id, &pendingOp[T]{kind: opDelete, entity: s.mapping.Clone(entity)})
	return nil
}

func (s *Set[T]) validate(entity *T) error {
	if s.mapping.Validate == nil {
		return nil
	}
	if err := s.mapping.Validate(entity); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}
	return nil
}

func (s *Set[T]) stage(id int64, op *pendingOp[T]) {
	s.pending[id] = op
	s.order = append(s.order, id)
}

func (s *Set[T]) unstage(id int64) {
	delete(s.pending, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Set[T]) hasChanges() bool {
	return len(s.order) > 0
}

func (s *Set[T]) reset() {
	s.pending = make(map[int64]*pendingOp[T])
	s.order = nil
}

// flush writes every staged operation through b in staging order. Staged
// state is left untouched; the returned func publishes store-assigned
// identities and versions to callers and clears the set, and must only run
// once the batch has committed.
func (s *Set[T]) flush(ctx context.Context, b Batch, now time.Time) (int, func(), error) {
	if !s.hasChanges() {
		return 0, func() {}, nil
	}

	w, err := s.table.Writer(b)
	if err != nil {
		return 0, nil, err
	}

	type written struct {
		origin *T
		saved  *T
		insert bool
	}
	results := make([]written, 0, len(s.order))

	for _, id := range s.order {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}

		op := s.pending[id]
		e := s.mapping.Clone(op.entity)

		switch op.kind {
		case opInsert:
			if err = s.validate(e); err == nil {
				s.mapping.SetID(e, 0)
				if s.mapping.OnInsert != nil {
					s.mapping.OnInsert(e, now)
				}
				err = w.Insert(ctx, e)
			}
		case opUpdate:
			if err = s.validate(e); err == nil {
				err = w.Update(ctx, e)
			}
		case opDelete:
			err = w.Delete(ctx, e)
		}
		if err != nil {
			return 0, nil, NewStoreError(s.mapping.Entity, op.kind.String(), fmt.Sprintf("id %d", id), err)
		}

		results = append(results, written{origin: op.origin, saved: e, insert: op.kind == opInsert})
	}

	apply := func() {
		for _, r := range results {
			if r.origin == nil {
				continue
			}
			s.mapping.SetID(r.origin, s.mapping.ID(r.saved))
			s.mapping.SetVersion(r.origin, s.mapping.Version(r.saved))
			if r.insert && s.mapping.OnInsert != nil {
				s.mapping.OnInsert(r.origin, now)
			}
		}
		s.reset()
	}

	return len(results), apply, nil
}
