package apps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamlauncher/beam/internal/provider"
)

func writeDesktopFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func collect(t *testing.T, p *Provider, query string) []provider.Result {
	t.Helper()
	var results []provider.Result
	err := p.Search(context.Background(), query, func(r provider.Result) {
		results = append(results, r)
	})
	require.NoError(t, err)
	return results
}

func TestSearch_MatchQuality(t *testing.T) {
	dir := t.TempDir()
	writeDesktopFile(t, dir, "firefox.desktop",
		"[Desktop Entry]\nName=Firefox\nExec=firefox %u\nComment=Web Browser\n")
	writeDesktopFile(t, dir, "files.desktop",
		"[Desktop Entry]\nName=Files\nExec=nautilus\n")
	writeDesktopFile(t, dir, "profiler.desktop",
		"[Desktop Entry]\nName=System Profiler\nExec=profiler\n")

	p := New(dir)

	results := collect(t, p, "fi")
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, 0.9, r.Score, "prefix match for %s", r.ID)
	}

	results = collect(t, p, "files")
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, "Files", results[0].Title)

	// Word-prefix match beats bare substring.
	results = collect(t, p, "prof")
	require.Len(t, results, 1)
	assert.Equal(t, "profiler", results[0].ID)
	assert.Equal(t, 0.7, results[0].Score)
}

func TestSearch_CaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeDesktopFile(t, dir, "firefox.desktop", "[Desktop Entry]\nName=Firefox\nExec=firefox\n")

	p := New(dir)
	assert.Len(t, collect(t, p, "FIREFOX"), 1)
	assert.Len(t, collect(t, p, "fIrE"), 1)
}

func TestSearch_EmptyQuery(t *testing.T) {
	dir := t.TempDir()
	writeDesktopFile(t, dir, "firefox.desktop", "[Desktop Entry]\nName=Firefox\nExec=firefox\n")

	p := New(dir)
	assert.Empty(t, collect(t, p, ""))
	assert.Empty(t, collect(t, p, "   "))
}

func TestParse_SkipsHiddenEntries(t *testing.T) {
	dir := t.TempDir()
	writeDesktopFile(t, dir, "hidden.desktop", "[Desktop Entry]\nName=Hidden\nHidden=true\n")
	writeDesktopFile(t, dir, "nodisplay.desktop", "[Desktop Entry]\nName=Backend\nNoDisplay=true\n")
	writeDesktopFile(t, dir, "nameless.desktop", "[Desktop Entry]\nExec=thing\n")

	p := New(dir)
	assert.Empty(t, collect(t, p, "hidden"))
	assert.Empty(t, collect(t, p, "backend"))
}

func TestParse_OnlyDesktopEntryGroup(t *testing.T) {
	dir := t.TempDir()
	writeDesktopFile(t, dir, "app.desktop",
		"[Desktop Entry]\nName=Real Name\n[Desktop Action new]\nName=Ignored Action\n")

	p := New(dir)
	results := collect(t, p, "real")
	require.Len(t, results, 1)
	assert.Equal(t, "Real Name", results[0].Title)
}

func TestRescan_UserEntriesShadowSystemOnes(t *testing.T) {
	system := t.TempDir()
	user := t.TempDir()
	writeDesktopFile(t, system, "firefox.desktop", "[Desktop Entry]\nName=Firefox\nExec=/usr/bin/firefox\n")
	writeDesktopFile(t, user, "firefox.desktop", "[Desktop Entry]\nName=Firefox Nightly\nExec=/opt/firefox\n")

	p := New(system, user)
	results := collect(t, p, "firefox")
	require.Len(t, results, 1)
	assert.Equal(t, "Firefox Nightly", results[0].Title)
}

func TestRescan_PicksUpNewEntries(t *testing.T) {
	dir := t.TempDir()
	p := New(dir)
	assert.Empty(t, collect(t, p, "firefox"))

	writeDesktopFile(t, dir, "firefox.desktop", "[Desktop Entry]\nName=Firefox\nExec=firefox\n")
	p.Rescan()
	assert.Len(t, collect(t, p, "firefox"), 1)
}

func TestNew_MissingDirectory(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Empty(t, collect(t, p, "anything"))
}
