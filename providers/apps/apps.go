// Package apps provides the desktop-application search provider. It
// scans freedesktop-style .desktop entries from the application
// directories and matches them by name.
package apps

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/beamlauncher/beam/internal/provider"
)

// ProviderID identifies this provider in qualified result IDs and
// runtime records.
const ProviderID = "apps"

// Entry is one launchable application parsed from a .desktop file.
type Entry struct {
	ID      string // file name without the .desktop suffix
	Name    string
	Exec    string
	Comment string
}

// Provider matches installed applications by name.
type Provider struct {
	dirs []string

	mu      sync.RWMutex
	entries []Entry
}

// DefaultDirs returns the standard application directories for the
// current user.
func DefaultDirs() []string {
	dirs := []string{"/usr/share/applications", "/usr/local/share/applications"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "share", "applications"))
	}
	return dirs
}

// New creates the provider and scans the given directories. Missing
// directories are skipped; a host with no .desktop entries yields a
// provider that matches nothing.
func New(dirs ...string) *Provider {
	if len(dirs) == 0 {
		dirs = DefaultDirs()
	}
	p := &Provider{dirs: dirs}
	p.Rescan()
	return p
}

// ID implements provider.Provider.
func (p *Provider) ID() string { return ProviderID }

// Rescan re-reads the application directories. Later directories
// shadow earlier ones for the same entry ID, matching the
// freedesktop precedence where user entries override system ones.
func (p *Provider) Rescan() {
	seen := make(map[string]Entry)
	for _, dir := range p.dirs {
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".desktop") {
				continue
			}
			entry, ok := parseDesktopFile(filepath.Join(dir, f.Name()))
			if !ok {
				continue
			}
			entry.ID = strings.TrimSuffix(f.Name(), ".desktop")
			seen[entry.ID] = entry
		}
	}

	entries := make([]Entry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	p.mu.Lock()
	p.entries = entries
	p.mu.Unlock()

	slog.Debug("Application entries scanned", slog.Int("count", len(entries)))
}

// Search implements provider.Provider. Matching is case-insensitive
// against the entry name; the score reflects match quality so exact
// and prefix hits outrank substring hits.
func (p *Provider) Search(ctx context.Context, query string, emit provider.EmitFunc) error {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	p.mu.RLock()
	entries := p.entries
	p.mu.RUnlock()

	for i, entry := range entries {
		if i%64 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		score := matchScore(strings.ToLower(entry.Name), needle)
		if score <= 0 {
			continue
		}
		emit(provider.Result{
			ID:       entry.ID,
			Title:    entry.Name,
			Subtitle: entry.Comment,
			Score:    score,
		})
	}
	return nil
}

// matchScore grades how well needle matches name. Zero means no match.
func matchScore(name, needle string) float64 {
	switch {
	case name == needle:
		return 1.0
	case strings.HasPrefix(name, needle):
		return 0.9
	case wordPrefix(name, needle):
		return 0.7
	case strings.Contains(name, needle):
		return 0.5
	}
	return 0
}

// wordPrefix reports whether any word of name starts with needle.
func wordPrefix(name, needle string) bool {
	for _, word := range strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}) {
		if strings.HasPrefix(word, needle) {
			return true
		}
	}
	return false
}

// parseDesktopFile reads the [Desktop Entry] group of a .desktop file.
// Hidden and NoDisplay entries are skipped, as are entries without a
// name.
func parseDesktopFile(path string) (Entry, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, false
	}
	defer f.Close()

	var entry Entry
	inDesktopEntry := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inDesktopEntry = line == "[Desktop Entry]"
			continue
		}
		if !inDesktopEntry {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Name":
			entry.Name = strings.TrimSpace(value)
		case "Exec":
			entry.Exec = strings.TrimSpace(value)
		case "Comment":
			entry.Comment = strings.TrimSpace(value)
		case "NoDisplay", "Hidden":
			if strings.TrimSpace(value) == "true" {
				return Entry{}, false
			}
		}
	}
	if err := scanner.Err(); err != nil || entry.Name == "" {
		return Entry{}, false
	}
	return entry, true
}

var _ provider.Provider = (*Provider)(nil)
