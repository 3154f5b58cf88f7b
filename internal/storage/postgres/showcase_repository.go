package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/counselcms/server/internal/domain/showcase"
	"github.com/jackc/pgx/v5"
)

// ShowcaseRepository stores every showcase collection in showcase_items,
// keeping item content as a JSONB document.
type ShowcaseRepository struct {
	conn
}

func scanRecord(row pgx.Row) (showcase.Record, error) {
	var rec showcase.Record
	err := row.Scan(&rec.ID, &rec.Position, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func (r *ShowcaseRepository) List(ctx context.Context, collection showcase.Collection) ([]showcase.Record, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT id, position, data, created_at, updated_at
  FROM showcase_items
 WHERE collection = $1
 ORDER BY position, id
`, string(collection))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	out := []showcase.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s item: %w", collection, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

func (r *ShowcaseRepository) Get(ctx context.Context, collection showcase.Collection, id string) (showcase.Record, error) {
	rec, err := scanRecord(r.queryer().QueryRow(ctx, `
SELECT id, position, data, created_at, updated_at
  FROM showcase_items
 WHERE collection = $1 AND id = $2
`, string(collection), normalizeID(id)))
	if err != nil {
		if isNoRows(err) {
			return showcase.Record{}, showcase.ErrNotFound
		}
		return showcase.Record{}, fmt.Errorf("get %s item: %w", collection, err)
	}
	return rec, nil
}

// Create appends the record after the collection's last item.
func (r *ShowcaseRepository) Create(ctx context.Context, collection showcase.Collection, record showcase.Record) (showcase.Record, error) {
	var out showcase.Record
	err := r.inTx(ctx, func(q queryer) error {
		// Serialize appends per collection so concurrent creates do not
		// compute the same next position.
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('showcase:' || $1))`, string(collection)); err != nil {
			return fmt.Errorf("lock %s: %w", collection, err)
		}
		var err error
		out, err = scanRecord(q.QueryRow(ctx, `
INSERT INTO showcase_items (id, collection, position, data)
SELECT $1, $2, COALESCE(MAX(position) + 1, 0), $3
  FROM showcase_items
 WHERE collection = $2
RETURNING id, position, data, created_at, updated_at
`, record.ID, string(collection), record.Data))
		if err != nil {
			return fmt.Errorf("insert %s item: %w", collection, err)
		}
		return nil
	})
	return out, err
}

func (r *ShowcaseRepository) Update(ctx context.Context, collection showcase.Collection, id string, data []byte) (showcase.Record, error) {
	rec, err := scanRecord(r.queryer().QueryRow(ctx, `
UPDATE showcase_items
   SET data = $3, updated_at = now()
 WHERE collection = $1 AND id = $2
RETURNING id, position, data, created_at, updated_at
`, string(collection), normalizeID(id), data))
	if err != nil {
		if isNoRows(err) {
			return showcase.Record{}, showcase.ErrNotFound
		}
		return showcase.Record{}, fmt.Errorf("update %s item: %w", collection, err)
	}
	return rec, nil
}

func (r *ShowcaseRepository) Delete(ctx context.Context, collection showcase.Collection, id string) error {
	return r.inTx(ctx, func(q queryer) error {
		var position int
		err := q.QueryRow(ctx,
			`DELETE FROM showcase_items WHERE collection = $1 AND id = $2 RETURNING position`,
			string(collection), normalizeID(id),
		).Scan(&position)
		if err != nil {
			if isNoRows(err) {
				return showcase.ErrNotFound
			}
			return fmt.Errorf("delete %s item: %w", collection, err)
		}
		if _, err := q.Exec(ctx,
			`UPDATE showcase_items SET position = position - 1 WHERE collection = $1 AND position > $2`,
			string(collection), position,
		); err != nil {
			return fmt.Errorf("compact %s positions: %w", collection, err)
		}
		return nil
	})
}

func (r *ShowcaseRepository) SetPositions(ctx context.Context, collection showcase.Collection, ids []string) error {
	return r.inTx(ctx, func(q queryer) error {
		tag, err := q.Exec(ctx, `
UPDATE showcase_items AS s
   SET position = o.ord - 1, updated_at = now()
  FROM unnest($2::text[]) WITH ORDINALITY AS o(id, ord)
 WHERE s.collection = $1 AND s.id = o.id
`, string(collection), ids)
		if err != nil {
			return fmt.Errorf("reorder %s: %w", collection, err)
		}
		if int(tag.RowsAffected()) != len(ids) {
			return showcase.ErrInvalidOrder
		}
		return nil
	})
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
