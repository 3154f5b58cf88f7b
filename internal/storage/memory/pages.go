package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/counselcms/server/internal/domain/pages"
)

type PageRepository struct {
	locker
	clock *clock
	pages map[string]*pages.Page
}

func clonePage(p *pages.Page) *pages.Page {
	out := *p
	out.Sections = make([]pages.Section, len(p.Sections))
	for i, s := range p.Sections {
		out.Sections[i] = s
		if s.Data != nil {
			data := make(map[string]any, len(s.Data))
			for k, v := range s.Data {
				data[k] = v
			}
			out.Sections[i].Data = data
		}
	}
	return &out
}

func (r *PageRepository) List(ctx context.Context, filter pages.ListFilter) ([]pages.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pages.Page, 0, len(r.pages))
	for _, p := range r.pages {
		if filter.PublishedOnly && !p.Published {
			continue
		}
		page := *p
		page.Sections = nil
		out = append(out, page)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (r *PageRepository) GetByID(ctx context.Context, id string) (*pages.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pages[key(id)]
	if !ok {
		return nil, pages.ErrNotFound
	}
	return clonePage(p), nil
}

func (r *PageRepository) GetBySlug(ctx context.Context, slug string) (*pages.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.pages {
		if p.Slug == slug {
			return clonePage(p), nil
		}
	}
	return nil, pages.ErrNotFound
}

func (r *PageRepository) slugTaken(slug, exceptID string) bool {
	for id, p := range r.pages {
		if p.Slug == slug && id != key(exceptID) {
			return true
		}
	}
	return false
}

func (r *PageRepository) Create(ctx context.Context, page *pages.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slugTaken(page.Slug, "") {
		return pages.ErrSlugTaken
	}
	now := r.clock.Now()
	page.CreatedAt, page.UpdatedAt = now, now
	r.pages[key(page.ID)] = clonePage(page)
	return nil
}

func (r *PageRepository) Update(ctx context.Context, page *pages.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.pages[key(page.ID)]
	if !ok {
		return pages.ErrNotFound
	}
	if r.slugTaken(page.Slug, page.ID) {
		return pages.ErrSlugTaken
	}
	page.UpdatedAt = r.clock.Now()
	page.CreatedAt = existing.CreatedAt
	existing.Slug, existing.Title, existing.Description = page.Slug, page.Title, page.Description
	existing.Published, existing.UpdatedAt = page.Published, page.UpdatedAt
	return nil
}

func (r *PageRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pages[key(id)]; !ok {
		return pages.ErrNotFound
	}
	delete(r.pages, key(id))
	return nil
}

func (r *PageRepository) CreateSection(ctx context.Context, section *pages.Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[key(section.PageID)]
	if !ok {
		return pages.ErrNotFound
	}
	now := r.clock.Now()
	section.CreatedAt, section.UpdatedAt = now, now
	p.Sections = append(p.Sections, *section)
	return nil
}

func (r *PageRepository) UpdateSection(ctx context.Context, section *pages.Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[key(section.PageID)]
	if !ok {
		return pages.ErrNotFound
	}
	for i := range p.Sections {
		if strings.EqualFold(p.Sections[i].ID, section.ID) {
			section.UpdatedAt = r.clock.Now()
			p.Sections[i].Type = section.Type
			p.Sections[i].Visible = section.Visible
			p.Sections[i].Data = section.Data
			p.Sections[i].UpdatedAt = section.UpdatedAt
			return nil
		}
	}
	return pages.ErrSectionNotFound
}

func (r *PageRepository) DeleteSection(ctx context.Context, pageID, sectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[key(pageID)]
	if !ok {
		return pages.ErrNotFound
	}
	kept := p.Sections[:0]
	found := false
	for _, s := range p.Sections {
		if strings.EqualFold(s.ID, sectionID) {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		return pages.ErrSectionNotFound
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Position < kept[j].Position })
	for i := range kept {
		kept[i].Position = i
	}
	p.Sections = kept
	return nil
}

func (r *PageRepository) SetSectionPositions(ctx context.Context, pageID string, sectionIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[key(pageID)]
	if !ok {
		return pages.ErrNotFound
	}
	positions := make(map[string]int, len(sectionIDs))
	for i, id := range sectionIDs {
		positions[key(id)] = i
	}
	for i := range p.Sections {
		pos, ok := positions[key(p.Sections[i].ID)]
		if !ok {
			return pages.ErrInvalidOrder
		}
		p.Sections[i].Position = pos
	}
	return nil
}
