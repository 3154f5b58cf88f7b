// Package patches holds named one-shot data fixes. Each run is recorded in
// the patch log so a patch applies at most once per database.
package patches

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/counselcms/server/internal/storage"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownPatch   = errors.New("unknown patch")
	ErrAlreadyApplied = errors.New("patch already applied")
	ErrMissingOption  = errors.New("missing patch option")
)

// errDryRun rolls back the transaction of a dry run.
var errDryRun = errors.New("dry run")

// Options carries the flags a patch may take.
type Options struct {
	From string
	To   string
}

// Patch is one registered data fix. Run returns a one-line summary of what
// it changed.
type Patch struct {
	Name        string
	Description string
	Run         func(ctx context.Context, repos storage.Repositories, opts Options, logger zerolog.Logger) (string, error)
	// LogKey derives the patch log entry from the options for patches that
	// may run once per distinct argument set.
	LogKey func(opts Options) (string, error)
}

func (p Patch) logKey(opts Options) (string, error) {
	if p.LogKey == nil {
		return p.Name, nil
	}
	return p.LogKey(opts)
}

var registry = map[string]Patch{}

func register(p Patch) {
	if _, dup := registry[p.Name]; dup {
		panic("patches: duplicate registration of " + p.Name)
	}
	registry[p.Name] = p
}

// All returns the registered patches sorted by name.
func All() []Patch {
	out := make([]Patch, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Lookup(name string) (Patch, error) {
	p, ok := registry[strings.TrimSpace(name)]
	if !ok {
		return Patch{}, fmt.Errorf("%w: %q", ErrUnknownPatch, name)
	}
	return p, nil
}

// Status pairs a patch with its log entries.
type Status struct {
	Patch   Patch
	Applied []storage.AppliedPatch
}

// List reports every registered patch and when it ran.
func List(ctx context.Context, log storage.PatchLog) ([]Status, error) {
	applied, err := log.Applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("read patch log: %w", err)
	}
	var out []Status
	for _, p := range All() {
		st := Status{Patch: p}
		for key, entry := range applied {
			if key == p.Name || strings.HasPrefix(key, p.Name+":") {
				st.Applied = append(st.Applied, entry)
			}
		}
		sort.Slice(st.Applied, func(i, j int) bool { return st.Applied[i].At.Before(st.Applied[j].At) })
		out = append(out, st)
	}
	return out, nil
}

// Result describes a Run.
type Result struct {
	Key     string
	Summary string
	DryRun  bool
}

// Run applies the named patch inside one transaction and records it. A dry
// run executes the patch and then rolls back; it is not recorded.
func Run(ctx context.Context, backend storage.Repository, name string, opts Options, dryRun bool, logger zerolog.Logger) (Result, error) {
	p, err := Lookup(name)
	if err != nil {
		return Result{}, err
	}
	key, err := p.logKey(opts)
	if err != nil {
		return Result{}, err
	}

	applied, err := backend.Repositories().Patches.Applied(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read patch log: %w", err)
	}
	if entry, ok := applied[key]; ok {
		return Result{}, fmt.Errorf("%w: %s on %s", ErrAlreadyApplied, key, entry.At.Format("2006-01-02 15:04"))
	}

	res := Result{Key: key, DryRun: dryRun}
	log := logger.With().Str("patch", key).Bool("dry_run", dryRun).Logger()
	err = backend.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		summary, err := p.Run(ctx, repos, opts, log)
		if err != nil {
			return err
		}
		res.Summary = summary
		if dryRun {
			return errDryRun
		}
		return repos.Patches.Record(ctx, key, summary)
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return Result{}, fmt.Errorf("patch %s: %w", key, err)
	}
	log.Info().Str("summary", res.Summary).Msg("patch finished")
	return res, nil
}
