package postgres

import (
	"context"
	"fmt"

	"github.com/counselcms/server/internal/storage"
)

// PatchLog records applied data patches in data_patches.
type PatchLog struct {
	conn
}

func (p *PatchLog) Applied(ctx context.Context) (map[string]storage.AppliedPatch, error) {
	rows, err := p.queryer().Query(ctx, `SELECT name, summary, applied_at FROM data_patches`)
	if err != nil {
		return nil, fmt.Errorf("list applied patches: %w", err)
	}
	defer rows.Close()

	out := map[string]storage.AppliedPatch{}
	for rows.Next() {
		var ap storage.AppliedPatch
		if err := rows.Scan(&ap.Name, &ap.Summary, &ap.At); err != nil {
			return nil, fmt.Errorf("scan applied patch: %w", err)
		}
		out[ap.Name] = ap
	}
	return out, rows.Err()
}

func (p *PatchLog) Record(ctx context.Context, name, summary string) error {
	_, err := p.queryer().Exec(ctx,
		`INSERT INTO data_patches (name, summary) VALUES ($1, $2)`, name, summary)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("patch %s already applied", name)
		}
		return fmt.Errorf("record patch: %w", err)
	}
	return nil
}
