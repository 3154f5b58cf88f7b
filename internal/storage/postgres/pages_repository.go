package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/counselcms/server/internal/domain/pages"
	"github.com/jackc/pgx/v5"
)

type PageRepository struct {
	conn
}

const pageColumns = `id, slug, title, description, published, created_at, updated_at`

func scanPage(row pgx.Row) (*pages.Page, error) {
	var p pages.Page
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Description, &p.Published, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PageRepository) List(ctx context.Context, filter pages.ListFilter) ([]pages.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages`
	if filter.PublishedOnly {
		query += ` WHERE published`
	}
	query += ` ORDER BY slug`

	rows, err := r.queryer().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var out []pages.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return out, nil
}

func (r *PageRepository) GetByID(ctx context.Context, id string) (*pages.Page, error) {
	return r.getWhere(ctx, `id = $1`, normalizeID(id))
}

func (r *PageRepository) GetBySlug(ctx context.Context, slug string) (*pages.Page, error) {
	return r.getWhere(ctx, `slug = $1`, slug)
}

func (r *PageRepository) getWhere(ctx context.Context, where string, arg string) (*pages.Page, error) {
	q := r.queryer()
	page, err := scanPage(q.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE `+where, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, pages.ErrNotFound
		}
		return nil, fmt.Errorf("get page: %w", err)
	}
	sections, err := r.sections(ctx, q, page.ID)
	if err != nil {
		return nil, err
	}
	page.Sections = sections
	return page, nil
}

func (r *PageRepository) sections(ctx context.Context, q queryer, pageID string) ([]pages.Section, error) {
	rows, err := q.Query(ctx, `
SELECT id, page_id, type, position, visible, data, created_at, updated_at
  FROM page_sections
 WHERE page_id = $1
 ORDER BY position, id
`, pageID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	out := []pages.Section{}
	for rows.Next() {
		var (
			s    pages.Section
			typ  string
			data []byte
		)
		if err := rows.Scan(&s.ID, &s.PageID, &typ, &s.Position, &s.Visible, &data, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		s.Type = pages.SectionType(typ)
		if err := json.Unmarshal(data, &s.Data); err != nil {
			return nil, fmt.Errorf("decode section %s data: %w", s.ID, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return out, nil
}

func (r *PageRepository) Create(ctx context.Context, page *pages.Page) error {
	err := r.queryer().QueryRow(ctx, `
INSERT INTO pages (id, slug, title, description, published)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at
`, page.ID, page.Slug, page.Title, page.Description, page.Published).Scan(&page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "pages_slug_key") {
			return pages.ErrSlugTaken
		}
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (r *PageRepository) Update(ctx context.Context, page *pages.Page) error {
	err := r.queryer().QueryRow(ctx, `
UPDATE pages
   SET slug = $2, title = $3, description = $4, published = $5, updated_at = now()
 WHERE id = $1
RETURNING created_at, updated_at
`, page.ID, page.Slug, page.Title, page.Description, page.Published).Scan(&page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return pages.ErrNotFound
		}
		if isUniqueViolation(err, "pages_slug_key") {
			return pages.ErrSlugTaken
		}
		return fmt.Errorf("update page: %w", err)
	}
	return nil
}

func (r *PageRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM pages WHERE id = $1`, normalizeID(id))
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pages.ErrNotFound
	}
	return nil
}

func (r *PageRepository) CreateSection(ctx context.Context, section *pages.Section) error {
	data, err := json.Marshal(section.Data)
	if err != nil {
		return fmt.Errorf("encode section data: %w", err)
	}
	err = r.queryer().QueryRow(ctx, `
INSERT INTO page_sections (id, page_id, type, position, visible, data)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at
`, section.ID, section.PageID, string(section.Type), section.Position, section.Visible, data).Scan(&section.CreatedAt, &section.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert section: %w", err)
	}
	return nil
}

func (r *PageRepository) UpdateSection(ctx context.Context, section *pages.Section) error {
	data, err := json.Marshal(section.Data)
	if err != nil {
		return fmt.Errorf("encode section data: %w", err)
	}
	err = r.queryer().QueryRow(ctx, `
UPDATE page_sections
   SET type = $3, visible = $4, data = $5, updated_at = now()
 WHERE id = $1 AND page_id = $2
RETURNING created_at, updated_at
`, section.ID, section.PageID, string(section.Type), section.Visible, data).Scan(&section.CreatedAt, &section.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return pages.ErrSectionNotFound
		}
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// DeleteSection removes a section and closes the gap it leaves in positions.
func (r *PageRepository) DeleteSection(ctx context.Context, pageID, sectionID string) error {
	return r.inTx(ctx, func(q queryer) error {
		var position int
		err := q.QueryRow(ctx,
			`DELETE FROM page_sections WHERE id = $1 AND page_id = $2 RETURNING position`,
			normalizeID(sectionID), pageID,
		).Scan(&position)
		if err != nil {
			if isNoRows(err) {
				return pages.ErrSectionNotFound
			}
			return fmt.Errorf("delete section: %w", err)
		}
		if _, err := q.Exec(ctx,
			`UPDATE page_sections SET position = position - 1 WHERE page_id = $1 AND position > $2`,
			pageID, position,
		); err != nil {
			return fmt.Errorf("compact section positions: %w", err)
		}
		return nil
	})
}

// SetSectionPositions assigns position i to ids[i] in one statement. The
// (page_id, position) constraint is deferred to commit.
func (r *PageRepository) SetSectionPositions(ctx context.Context, pageID string, ids []string) error {
	return r.inTx(ctx, func(q queryer) error {
		tag, err := q.Exec(ctx, `
UPDATE page_sections AS s
   SET position = o.ord - 1, updated_at = now()
  FROM unnest($2::text[]) WITH ORDINALITY AS o(id, ord)
 WHERE s.page_id = $1 AND s.id = o.id
`, pageID, ids)
		if err != nil {
			return fmt.Errorf("reorder sections: %w", err)
		}
		if int(tag.RowsAffected()) != len(ids) {
			return pages.ErrInvalidOrder
		}
		return nil
	})
}
