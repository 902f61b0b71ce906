package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/storage/sqlite"
)

func instanceFixture(id, name string) model.Instance {
	return model.Instance{
		ID:               id,
		Name:             name,
		ModpackID:        "mp-1",
		ModpackVersionID: model.LatestVersionMarker,
		Dir:              "/home/user/.packlaunch/instances/" + name,
		CreatedAt:        time.Unix(1700000000, 0).UTC(),
	}
}

func newRepo(t *testing.T, now time.Time) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: log.Noop,
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, time.Now())

	inst := instanceFixture("id-1", "inst-1")
	require.NoError(t, repo.CreateInstance(ctx, inst))

	got, err := repo.GetInstance(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, inst, *got)

	gotByName, err := repo.GetInstanceByName(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "id-1", gotByName.ID)

	all, err := repo.ListInstances(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	inst.ModpackVersionID = "v3"
	inst.UpdatedAt = time.Unix(1700000100, 0).UTC()
	require.NoError(t, repo.UpdateInstance(ctx, inst))

	updated, err := repo.GetInstance(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, inst, *updated)

	require.NoError(t, repo.DeleteInstance(ctx, "id-1"))
	_, err = repo.GetInstance(ctx, "id-1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRepositoryUpdateLastKnownVersion(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000500, 0).UTC()
	repo := newRepo(t, now)

	require.NoError(t, repo.CreateInstance(ctx, instanceFixture("id-1", "inst-1")))
	require.NoError(t, repo.UpdateLastKnownVersion(ctx, "id-1", "v7"))

	got, err := repo.GetInstance(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "v7", got.LastKnownVersion)
	assert.Equal(t, now, got.UpdatedAt)

	err = repo.UpdateLastKnownVersion(ctx, "id-x", "v7")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRepositoryListOrder(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, time.Now())

	old := instanceFixture("id-1", "old")
	newer := instanceFixture("id-2", "newer")
	newer.CreatedAt = old.CreatedAt.Add(time.Hour)
	require.NoError(t, repo.CreateInstance(ctx, old))
	require.NoError(t, repo.CreateInstance(ctx, newer))

	all, err := repo.ListInstances(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].Name)
	assert.Equal(t, "old", all[1].Name)
}

func TestRepositoryConstraints(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, time.Now())

	require.NoError(t, repo.CreateInstance(ctx, instanceFixture("id-1", "inst-1")))

	err := repo.CreateInstance(ctx, instanceFixture("id-1", "inst-2"))
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	err = repo.CreateInstance(ctx, instanceFixture("id-2", "inst-1"))
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	invalid := instanceFixture("id-3", "inst-3")
	invalid.Dir = ""
	err = repo.CreateInstance(ctx, invalid)
	assert.ErrorIs(t, err, model.ErrNotValid)

	require.NoError(t, repo.CreateInstance(ctx, instanceFixture("id-2", "inst-2")))
	err = repo.UpdateInstance(ctx, instanceFixture("id-2", "inst-1"))
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	err = repo.UpdateInstance(ctx, instanceFixture("id-x", "inst-x"))
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = repo.DeleteInstance(ctx, "id-x")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
