package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/counselcms/server/internal/domain/users"
)

type SiteConfigRepository struct {
	locker
	cfg *siteconfig.SiteConfig
}

func (r *SiteConfigRepository) Get(ctx context.Context) (*siteconfig.SiteConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cfg == nil {
		return nil, siteconfig.ErrNotFound
	}
	out := *r.cfg
	return &out, nil
}

func (r *SiteConfigRepository) Save(ctx context.Context, cfg *siteconfig.SiteConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *cfg
	r.cfg = &stored
	return nil
}

type InquiryRepository struct {
	locker
	clock *clock
	items map[string]*inquiries.Inquiry
}

func (r *InquiryRepository) Create(ctx context.Context, inquiry *inquiries.Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry.CreatedAt = r.clock.Now()
	stored := *inquiry
	r.items[key(inquiry.ID)] = &stored
	return nil
}

func (r *InquiryRepository) Get(ctx context.Context, id string) (*inquiries.Inquiry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.items[key(id)]
	if !ok {
		return nil, inquiries.ErrNotFound
	}
	out := *i
	return &out, nil
}

func (r *InquiryRepository) List(ctx context.Context, filter inquiries.Filter) ([]inquiries.Inquiry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]inquiries.Inquiry, 0, len(r.items))
	for _, i := range r.items {
		if filter.UnreadOnly && i.Read {
			continue
		}
		out = append(out, *i)
	}
	sortByCreatedDesc(out, func(i inquiries.Inquiry) time.Time { return i.CreatedAt }, func(i inquiries.Inquiry) string { return i.ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *InquiryRepository) MarkRead(ctx context.Context, id string) (*inquiries.Inquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.items[key(id)]
	if !ok {
		return nil, inquiries.ErrNotFound
	}
	i.Read = true
	out := *i
	return &out, nil
}

func (r *InquiryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[key(id)]; !ok {
		return inquiries.ErrNotFound
	}
	delete(r.items, key(id))
	return nil
}

type UserRepository struct {
	locker
	clock *clock
	users map[string]*users.User
}

func (r *UserRepository) List(ctx context.Context) ([]users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]users.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[key(id)]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			out := *u
			return &out, nil
		}
	}
	return nil, users.ErrUserNotFound
}

func (r *UserRepository) Create(ctx context.Context, user *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, user.Username) {
			return users.ErrUsernameTaken
		}
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return users.ErrEmailTaken
		}
	}
	now := r.clock.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	r.users[key(user.ID)] = &stored
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[key(id)]; !ok {
		return users.ErrUserNotFound
	}
	delete(r.users, key(id))
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[key(id)]
	if !ok {
		return users.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = r.clock.Now()
	return nil
}

func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[key(id)]
	if !ok {
		return users.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}
