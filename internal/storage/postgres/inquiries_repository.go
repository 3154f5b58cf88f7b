package postgres

import (
	"context"
	"fmt"

	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/jackc/pgx/v5"
)

type InquiryRepository struct {
	conn
}

const inquiryColumns = `id, name, email, phone, subject, message, source_url, read, created_at`

func scanInquiry(row pgx.Row) (*inquiries.Inquiry, error) {
	var i inquiries.Inquiry
	if err := row.Scan(&i.ID, &i.Name, &i.Email, &i.Phone, &i.Subject, &i.Message, &i.SourceURL, &i.Read, &i.CreatedAt); err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *InquiryRepository) Create(ctx context.Context, inquiry *inquiries.Inquiry) error {
	err := r.queryer().QueryRow(ctx, `
INSERT INTO inquiries (id, name, email, phone, subject, message, source_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at
`, inquiry.ID, inquiry.Name, inquiry.Email, inquiry.Phone, inquiry.Subject, inquiry.Message, inquiry.SourceURL).Scan(&inquiry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert inquiry: %w", err)
	}
	return nil
}

func (r *InquiryRepository) Get(ctx context.Context, id string) (*inquiries.Inquiry, error) {
	i, err := scanInquiry(r.queryer().QueryRow(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1`, normalizeID(id)))
	if err != nil {
		if isNoRows(err) {
			return nil, inquiries.ErrNotFound
		}
		return nil, fmt.Errorf("get inquiry: %w", err)
	}
	return i, nil
}

func (r *InquiryRepository) List(ctx context.Context, filter inquiries.Filter) ([]inquiries.Inquiry, error) {
	query := `SELECT ` + inquiryColumns + ` FROM inquiries`
	if filter.UnreadOnly {
		query += ` WHERE NOT read`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $1`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.queryer().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	defer rows.Close()

	out := []inquiries.Inquiry{}
	for rows.Next() {
		i, err := scanInquiry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inquiry: %w", err)
		}
		out = append(out, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inquiries: %w", err)
	}
	return out, nil
}

func (r *InquiryRepository) MarkRead(ctx context.Context, id string) (*inquiries.Inquiry, error) {
	i, err := scanInquiry(r.queryer().QueryRow(ctx,
		`UPDATE inquiries SET read = true WHERE id = $1 RETURNING `+inquiryColumns, normalizeID(id)))
	if err != nil {
		if isNoRows(err) {
			return nil, inquiries.ErrNotFound
		}
		return nil, fmt.Errorf("mark inquiry read: %w", err)
	}
	return i, nil
}

func (r *InquiryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM inquiries WHERE id = $1`, normalizeID(id))
	if err != nil {
		return fmt.Errorf("delete inquiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inquiries.ErrNotFound
	}
	return nil
}
