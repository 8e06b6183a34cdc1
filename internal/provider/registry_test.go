package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	id      string
	results []Result
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) Search(ctx context.Context, query string, emit EmitFunc) error {
	for _, r := range f.results {
		emit(r)
	}
	return nil
}

type failingLoader struct{}

func (failingLoader) LoadProviders() ([]Provider, error) {
	return nil, errors.New("plugin scan failed")
}

func newTestRegistry(t *testing.T, ids ...string) *Registry {
	t.Helper()

	providers := make([]Provider, len(ids))
	for i, id := range ids {
		providers[i] = &fakeProvider{id: id}
	}
	r := NewRegistry(StaticLoader(providers))
	require.NoError(t, r.Reload())
	return r
}

func TestRegistry_ActivePreservesRegistrationOrder(t *testing.T) {
	r := newTestRegistry(t, "apps", "calc", "files")

	var got []string
	for _, p := range r.Active() {
		got = append(got, p.ID())
	}
	assert.Equal(t, []string{"apps", "calc", "files"}, got)
}

func TestRegistry_SetEnabledAffectsFutureSnapshots(t *testing.T) {
	r := newTestRegistry(t, "apps", "calc")

	before := r.Active()
	r.SetEnabled("calc", false)
	after := r.Active()

	// The earlier snapshot is untouched.
	assert.Len(t, before, 2)
	require.Len(t, after, 1)
	assert.Equal(t, "apps", after[0].ID())

	r.SetEnabled("calc", true)
	assert.Len(t, r.Active(), 2)
}

func TestRegistry_ReloadKeepsDisabledState(t *testing.T) {
	r := newTestRegistry(t, "apps", "calc")
	r.SetEnabled("calc", false)

	require.NoError(t, r.Reload())

	var got []string
	for _, p := range r.Active() {
		got = append(got, p.ID())
	}
	assert.Equal(t, []string{"apps"}, got)
}

func TestRegistry_ReloadDropsStateOfRemovedProviders(t *testing.T) {
	loader := StaticLoader{&fakeProvider{id: "apps"}, &fakeProvider{id: "calc"}}
	r := NewRegistry(loader)
	require.NoError(t, r.Reload())
	r.SetEnabled("calc", false)

	r.loader = StaticLoader{&fakeProvider{id: "apps"}}
	require.NoError(t, r.Reload())
	r.loader = StaticLoader{&fakeProvider{id: "apps"}, &fakeProvider{id: "calc"}}
	require.NoError(t, r.Reload())

	// calc was removed and re-added; the disabled flag did not survive.
	assert.Len(t, r.Active(), 2)
}

func TestRegistry_ReloadFailureKeepsOldSet(t *testing.T) {
	r := newTestRegistry(t, "apps")
	r.loader = failingLoader{}

	assert.Error(t, r.Reload())
	assert.Len(t, r.Active(), 1)
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	r := newTestRegistry(t, "apps", "calc")

	snapshot := r.Active()
	require.NoError(t, r.Reload())
	r.SetEnabled("apps", false)

	assert.Len(t, snapshot, 2)
}

func TestResult_QualifiedID(t *testing.T) {
	r := Result{ProviderID: "apps", ID: "firefox.desktop"}
	assert.Equal(t, "apps|firefox.desktop", r.QualifiedID())
}

func TestRegistry_IDs(t *testing.T) {
	r := newTestRegistry(t, "apps", "calc")
	r.SetEnabled("calc", false)

	// IDs lists disabled providers too.
	assert.Equal(t, []string{"apps", "calc"}, r.IDs())
}
