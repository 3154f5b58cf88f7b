package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/counselcms/server/internal/domain/siteconfig"
)

// SiteConfigRepository keeps the singleton document in site_config row 1.
type SiteConfigRepository struct {
	conn
}

func (r *SiteConfigRepository) Get(ctx context.Context) (*siteconfig.SiteConfig, error) {
	var raw []byte
	var cfg siteconfig.SiteConfig
	err := r.queryer().QueryRow(ctx, `SELECT document, updated_at FROM site_config WHERE id = 1`).Scan(&raw, &cfg.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, siteconfig.ErrNotFound
		}
		return nil, fmt.Errorf("get site config: %w", err)
	}
	updated := cfg.UpdatedAt
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode site config: %w", err)
	}
	cfg.UpdatedAt = updated
	return &cfg, nil
}

func (r *SiteConfigRepository) Save(ctx context.Context, cfg *siteconfig.SiteConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode site config: %w", err)
	}
	err = r.queryer().QueryRow(ctx, `
INSERT INTO site_config (id, document, updated_at)
VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()
RETURNING updated_at
`, raw).Scan(&cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save site config: %w", err)
	}
	return nil
}
