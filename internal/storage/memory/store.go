// Package memory provides mutex-guarded in-memory implementations of the
// domain repositories. The seed command's dry run applies documents to it,
// and handler and renderer tests use it in place of postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/showcase"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/counselcms/server/internal/domain/users"
	"github.com/counselcms/server/internal/storage"
)

// Store bundles one repository per domain, sharing a clock.
type Store struct {
	Pages      *PageRepository
	Showcase   *ShowcaseRepository
	Careers    *CareersRepository
	Blog       *BlogRepository
	SiteConfig *SiteConfigRepository
	Inquiries  *InquiryRepository
	Users      *UserRepository
	Patches    *PatchLog
}

var (
	_ pages.Repository      = (*PageRepository)(nil)
	_ showcase.Repository   = (*ShowcaseRepository)(nil)
	_ careers.Repository    = (*CareersRepository)(nil)
	_ blog.Repository       = (*BlogRepository)(nil)
	_ siteconfig.Repository = (*SiteConfigRepository)(nil)
	_ inquiries.Repository  = (*InquiryRepository)(nil)
	_ users.Repository      = (*UserRepository)(nil)
	_ storage.PatchLog      = (*PatchLog)(nil)
	_ storage.Repository    = (*Store)(nil)
)

func New() *Store {
	c := &clock{now: time.Now}
	return &Store{
		Pages:      &PageRepository{clock: c, pages: map[string]*pages.Page{}},
		Showcase:   &ShowcaseRepository{clock: c, items: map[showcase.Collection][]showcase.Record{}},
		Careers:    &CareersRepository{clock: c, jobs: map[string]*careers.Job{}, applicants: map[string]*careers.Applicant{}},
		Blog:       &BlogRepository{clock: c, posts: map[string]*blog.Post{}},
		SiteConfig: &SiteConfigRepository{},
		Inquiries:  &InquiryRepository{clock: c, items: map[string]*inquiries.Inquiry{}},
		Users:      &UserRepository{clock: c, users: map[string]*users.User{}},
		Patches:    &PatchLog{clock: c, applied: map[string]storage.AppliedPatch{}},
	}
}

type clock struct {
	now func() time.Time
}

func (c *clock) Now() time.Time {
	return c.now().UTC()
}

func key(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func sortByCreatedDesc[T any](items []T, created func(T) time.Time, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return id(items[i]) > id(items[j])
	})
}

type locker struct {
	mu sync.RWMutex
}

func (s *Store) Repositories() storage.Repositories {
	return storage.Repositories{
		Pages:      s.Pages,
		Showcase:   s.Showcase,
		Careers:    s.Careers,
		Blog:       s.Blog,
		SiteConfig: s.SiteConfig,
		Inquiries:  s.Inquiries,
		Users:      s.Users,
		Patches:    s.Patches,
	}
}

// WithTx runs fn directly. Writes made before an error are kept.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, storage.Repositories) error) error {
	return fn(ctx, s.Repositories())
}

// PatchLog is an in-memory storage.PatchLog.
type PatchLog struct {
	locker
	clock   *clock
	applied map[string]storage.AppliedPatch
}

func (p *PatchLog) Applied(ctx context.Context) (map[string]storage.AppliedPatch, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]storage.AppliedPatch, len(p.applied))
	for k, v := range p.applied {
		out[k] = v
	}
	return out, nil
}

func (p *PatchLog) Record(ctx context.Context, name, summary string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied[name] = storage.AppliedPatch{Name: name, Summary: summary, At: p.clock.Now()}
	return nil
}
