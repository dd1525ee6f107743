package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanzabuild/stanza/pkg/registry"
)

type stubUpstream struct {
	calls    int
	versions []registry.Version
	err      error
}

func (s *stubUpstream) Versions(ctx context.Context, packageName string) ([]registry.Version, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.versions, nil
}

func TestNewCachedValidation(t *testing.T) {
	store, _ := newMockStore(t, time.Hour)

	_, err := NewCached(nil, &stubUpstream{}, nil, nil)
	require.Error(t, err)

	_, err = NewCached(store, nil, nil, nil)
	require.Error(t, err)
}

func TestCachedServesFreshEntryWithoutUpstream(t *testing.T) {
	store, mock := newMockStore(t, time.Hour)
	now := time.Now()
	store.now = func() time.Time { return now }

	rows := sqlmock.NewRows([]string{"versions", "fetched_at"}).
		AddRow(`["1.0.0","2.1.0"]`, now.Add(-time.Minute).Unix())
	mock.ExpectQuery("SELECT versions, fetched_at FROM package_versions").
		WithArgs("hspec-fancy").
		WillReturnRows(rows)

	upstream := &stubUpstream{}
	cached, err := NewCached(store, upstream, nil, nil)
	require.NoError(t, err)

	versions, err := cached.Versions(context.Background(), "hspec-fancy")
	require.NoError(t, err)

	require.Len(t, versions, 2)
	assert.Equal(t, "2.1.0", versions[1].String())
	assert.Equal(t, 0, upstream.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedMissFetchesAndStores(t *testing.T) {
	store, mock := newMockStore(t, time.Hour)
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	mock.ExpectQuery("SELECT versions, fetched_at FROM package_versions").
		WithArgs("hspec-fancy").
		WillReturnRows(sqlmock.NewRows([]string{"versions", "fetched_at"}))
	mock.ExpectExec("INSERT INTO package_versions").
		WithArgs("hspec-fancy", `["1.0.0","2.1.0"]`, now.Unix()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	upstream := &stubUpstream{versions: []registry.Version{
		registry.MustParseVersion("1.0.0"),
		registry.MustParseVersion("2.1.0"),
	}}
	cached, err := NewCached(store, upstream, nil, nil)
	require.NoError(t, err)

	versions, err := cached.Versions(context.Background(), "hspec-fancy")
	require.NoError(t, err)

	require.Len(t, versions, 2)
	assert.Equal(t, 1, upstream.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedStoreFailureFallsBackToUpstream(t *testing.T) {
	store, mock := newMockStore(t, time.Hour)

	mock.ExpectQuery("SELECT versions, fetched_at FROM package_versions").
		WithArgs("hspec-fancy").
		WillReturnError(errors.New("disk gone"))
	mock.ExpectExec("INSERT INTO package_versions").
		WillReturnError(errors.New("disk still gone"))

	upstream := &stubUpstream{versions: []registry.Version{
		registry.MustParseVersion("1.0.0"),
	}}
	cached, err := NewCached(store, upstream, nil, nil)
	require.NoError(t, err)

	versions, err := cached.Versions(context.Background(), "hspec-fancy")
	require.NoError(t, err)

	require.Len(t, versions, 1)
	assert.Equal(t, 1, upstream.calls)
}

func TestCachedUpstreamErrorPropagates(t *testing.T) {
	store, mock := newMockStore(t, time.Hour)

	mock.ExpectQuery("SELECT versions, fetched_at FROM package_versions").
		WithArgs("vanished").
		WillReturnRows(sqlmock.NewRows([]string{"versions", "fetched_at"}))

	upstream := &stubUpstream{err: registry.ErrNotFound}
	cached, err := NewCached(store, upstream, nil, nil)
	require.NoError(t, err)

	_, err = cached.Versions(context.Background(), "vanished")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestCachedCorruptEntryRefetches(t *testing.T) {
	store, mock := newMockStore(t, time.Hour)
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	rows := sqlmock.NewRows([]string{"versions", "fetched_at"}).
		AddRow(`["not a version"]`, now.Unix())
	mock.ExpectQuery("SELECT versions, fetched_at FROM package_versions").
		WithArgs("hspec-fancy").
		WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO package_versions").
		WithArgs("hspec-fancy", `["1.0.0"]`, now.Unix()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	upstream := &stubUpstream{versions: []registry.Version{
		registry.MustParseVersion("1.0.0"),
	}}
	cached, err := NewCached(store, upstream, nil, nil)
	require.NoError(t, err)

	versions, err := cached.Versions(context.Background(), "hspec-fancy")
	require.NoError(t, err)

	require.Len(t, versions, 1)
	assert.Equal(t, 1, upstream.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
