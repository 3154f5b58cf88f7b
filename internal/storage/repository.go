// Package storage defines the set of domain repositories a backend provides.
// postgres is the production backend; memory backs dry runs and tests.
package storage

import (
	"context"
	"time"

	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/showcase"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/counselcms/server/internal/domain/users"
)

// Repositories groups data access by domain.
type Repositories struct {
	Pages      pages.Repository
	Showcase   showcase.Repository
	Careers    careers.Repository
	Blog       blog.Repository
	SiteConfig siteconfig.Repository
	Inquiries  inquiries.Repository
	Users      users.Repository
	Patches    PatchLog
}

// Repository is a storage backend.
type Repository interface {
	Repositories() Repositories
	// WithTx runs fn with repositories bound to a single transaction. An
	// error returned by fn rolls the transaction back.
	WithTx(ctx context.Context, fn func(context.Context, Repositories) error) error
}

// PatchLog records which one-shot data patches have been applied.
type PatchLog interface {
	Applied(ctx context.Context) (map[string]AppliedPatch, error)
	Record(ctx context.Context, name, summary string) error
}

type AppliedPatch struct {
	Name    string
	Summary string
	At      time.Time
}
