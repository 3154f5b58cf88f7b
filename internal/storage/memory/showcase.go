package memory

import (
	"context"
	"sort"

	"github.com/counselcms/server/internal/domain/showcase"
)

type ShowcaseRepository struct {
	locker
	clock *clock
	items map[showcase.Collection][]showcase.Record
}

func (r *ShowcaseRepository) List(ctx context.Context, collection showcase.Collection) ([]showcase.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]showcase.Record(nil), r.items[collection]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ShowcaseRepository) find(collection showcase.Collection, id string) int {
	for i, rec := range r.items[collection] {
		if rec.ID == key(id) {
			return i
		}
	}
	return -1
}

func (r *ShowcaseRepository) Get(ctx context.Context, collection showcase.Collection, id string) (showcase.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.find(collection, id)
	if i < 0 {
		return showcase.Record{}, showcase.ErrNotFound
	}
	return r.items[collection][i], nil
}

func (r *ShowcaseRepository) Create(ctx context.Context, collection showcase.Collection, record showcase.Record) (showcase.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	record.ID = key(record.ID)
	record.Position = len(r.items[collection])
	record.CreatedAt, record.UpdatedAt = now, now
	r.items[collection] = append(r.items[collection], record)
	return record, nil
}

func (r *ShowcaseRepository) Update(ctx context.Context, collection showcase.Collection, id string, data []byte) (showcase.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(collection, id)
	if i < 0 {
		return showcase.Record{}, showcase.ErrNotFound
	}
	rec := &r.items[collection][i]
	rec.Data = append([]byte(nil), data...)
	rec.UpdatedAt = r.clock.Now()
	return *rec, nil
}

func (r *ShowcaseRepository) Delete(ctx context.Context, collection showcase.Collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(collection, id)
	if i < 0 {
		return showcase.ErrNotFound
	}
	items := append(r.items[collection][:i:i], r.items[collection][i+1:]...)
	sort.SliceStable(items, func(a, b int) bool { return items[a].Position < items[b].Position })
	for pos := range items {
		items[pos].Position = pos
	}
	r.items[collection] = items
	return nil
}

func (r *ShowcaseRepository) SetPositions(ctx context.Context, collection showcase.Collection, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	positions := make(map[string]int, len(ids))
	for i, id := range ids {
		positions[key(id)] = i
	}
	items := r.items[collection]
	for i := range items {
		pos, ok := positions[items[i].ID]
		if !ok {
			return showcase.ErrInvalidOrder
		}
		items[i].Position = pos
	}
	return nil
}
