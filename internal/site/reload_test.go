package site_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/site"
	"github.com/counselcms/server/web"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsChangedTemplates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, web.Templates()))

	tmpl, err := site.LoadTemplates(os.DirFS(dir))
	require.NoError(t, err)
	watcher, err := site.NewWatcher(dir, tmpl, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	r := site.NewRenderer(tmpl, site.Sources{}, "")
	cta := pages.Section{ID: "01", Type: pages.SectionCTA, Visible: true, Data: map[string]any{"heading": "Call"}}

	replacement := `{{define "section/CTA"}}<div class="edited">{{str .Data "heading"}}</div>{{end}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sections", "cta.html"), []byte(replacement), 0o644))

	require.Eventually(t, func() bool {
		html, err := r.RenderSection(context.Background(), cta, testSite())
		return err == nil && bytes.Contains([]byte(html), []byte(`class="edited"`))
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcherKeepsTemplatesOnParseError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, web.Templates()))

	tmpl, err := site.LoadTemplates(os.DirFS(dir))
	require.NoError(t, err)
	before := tmpl.Public()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sections", "cta.html"), []byte(`{{define "section/CTA"}}{{if}}{{end}}`), 0o644))
	require.Error(t, tmpl.Reload())
	require.Same(t, before, tmpl.Public())
}
