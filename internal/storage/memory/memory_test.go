package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/storage/memory"
)

func instanceFixture(id, name string) model.Instance {
	return model.Instance{
		ID:               id,
		Name:             name,
		ModpackID:        "mp-1",
		ModpackVersionID: model.LatestVersionMarker,
		Dir:              "/data/instances/" + name,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestRepositoryCRUD(t *testing.T) {
	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *memory.Repository) error
		expErr  error
	}{
		"Creating an instance should work": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				err := repo.CreateInstance(ctx, instanceFixture("test-id", "test"))
				require.NoError(t, err)

				// Verify we can retrieve it by id and name.
				retrieved, err := repo.GetInstance(ctx, "test-id")
				require.NoError(t, err)
				assert.Equal(t, "test", retrieved.Name)

				retrieved, err = repo.GetInstanceByName(ctx, "test")
				require.NoError(t, err)
				assert.Equal(t, "test-id", retrieved.ID)

				return nil
			},
		},

		"Creating duplicate ID should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, instanceFixture("test-id", "test")))
				return repo.CreateInstance(ctx, instanceFixture("test-id", "test-2"))
			},
			expErr: model.ErrAlreadyExists,
		},

		"Creating duplicate name should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, instanceFixture("test-id", "test")))
				return repo.CreateInstance(ctx, instanceFixture("test-id-2", "test"))
			},
			expErr: model.ErrAlreadyExists,
		},

		"Creating an invalid instance should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				inst := instanceFixture("test-id", "test")
				inst.ModpackID = ""
				return repo.CreateInstance(ctx, inst)
			},
			expErr: model.ErrNotValid,
		},

		"Getting a missing instance should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				_, err := repo.GetInstance(ctx, "non-existent")
				return err
			},
			expErr: model.ErrNotFound,
		},

		"Listing instances should return the newest first": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				old := instanceFixture("id-1", "old")
				old.CreatedAt = time.Now().Add(-time.Hour)
				require.NoError(t, repo.CreateInstance(ctx, old))
				require.NoError(t, repo.CreateInstance(ctx, instanceFixture("id-2", "new")))

				all, err := repo.ListInstances(ctx)
				require.NoError(t, err)
				require.Len(t, all, 2)
				assert.Equal(t, "new", all[0].Name)
				assert.Equal(t, "old", all[1].Name)
				return nil
			},
		},

		"Updating the last known version should persist it": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, instanceFixture("test-id", "test")))
				require.NoError(t, repo.UpdateLastKnownVersion(ctx, "test-id", "v2"))

				got, err := repo.GetInstance(ctx, "test-id")
				require.NoError(t, err)
				assert.Equal(t, "v2", got.LastKnownVersion)
				assert.False(t, got.UpdatedAt.IsZero())
				return nil
			},
		},

		"Updating the last known version of a missing instance should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.UpdateLastKnownVersion(ctx, "non-existent", "v2")
			},
			expErr: model.ErrNotFound,
		},

		"Renaming an instance should work": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, instanceFixture("test-id", "test")))
				require.NoError(t, repo.UpdateInstance(ctx, instanceFixture("test-id", "renamed")))

				_, err := repo.GetInstanceByName(ctx, "test")
				assert.ErrorIs(t, err, model.ErrNotFound)
				got, err := repo.GetInstanceByName(ctx, "renamed")
				require.NoError(t, err)
				assert.Equal(t, "test-id", got.ID)
				return nil
			},
		},

		"Updating an instance keeping its own name should work": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, instanceFixture("test-id", "test")))
				inst := instanceFixture("test-id", "test")
				inst.ModpackVersionID = "v3"
				return repo.UpdateInstance(ctx, inst)
			},
		},

		"Renaming an instance to the name of another one should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, instanceFixture("id-1", "one")))
				require.NoError(t, repo.CreateInstance(ctx, instanceFixture("id-2", "two")))
				err := repo.UpdateInstance(ctx, instanceFixture("id-2", "one"))

				got, gerr := repo.GetInstance(ctx, "id-2")
				require.NoError(t, gerr)
				assert.Equal(t, "two", got.Name)
				return err
			},
			expErr: model.ErrAlreadyExists,
		},

		"Updating a missing instance should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.UpdateInstance(ctx, instanceFixture("non-existent", "x"))
			},
			expErr: model.ErrNotFound,
		},

		"Deleting an instance should work": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateInstance(ctx, instanceFixture("test-id", "test")))
				require.NoError(t, repo.DeleteInstance(ctx, "test-id"))

				_, err := repo.GetInstance(ctx, "test-id")
				assert.ErrorIs(t, err, model.ErrNotFound)
				return nil
			},
		},

		"Deleting a missing instance should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.DeleteInstance(ctx, "non-existent")
			},
			expErr: model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			repo, err := memory.NewRepository(memory.RepositoryConfig{
				Logger: log.Noop,
			})
			require.NoError(t, err)

			err = test.actions(context.Background(), t, repo)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
			} else {
				assert.NoError(err)
			}
		})
	}
}

func TestRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	require.NoError(t, repo.CreateInstance(ctx, instanceFixture("test-id", "test")))

	got, err := repo.GetInstance(ctx, "test-id")
	require.NoError(t, err)
	got.Name = "changed"

	again, err := repo.GetInstance(ctx, "test-id")
	require.NoError(t, err)
	assert.Equal(t, "test", again.Name)
}
