package instanceadd_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/packlaunch/internal/app/instanceadd"
	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/storage/storagemock"
)

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config instanceadd.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: instanceadd.ServiceConfig{
				Repository: &storagemock.MockInstanceRepository{},
				Logger:     log.Noop,
			},
		},
		"missing repository should fail": {
			config: instanceadd.ServiceConfig{Logger: log.Noop},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := instanceadd.NewService(test.config)
			if test.expErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

var errStorage = fmt.Errorf("disk on fire")

func TestService_Run(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		req        instanceadd.Request
		mock       func(m *storagemock.MockInstanceRepository)
		expVersion string
		expErr     error
	}{
		"An instance without version should follow latest": {
			req: instanceadd.Request{Name: "skyblock", ModpackID: "mp-1", Dir: "/data/skyblock"},
			mock: func(m *storagemock.MockInstanceRepository) {
				m.On("GetInstanceByName", mock.Anything, "skyblock").Once().Return(nil, model.ErrNotFound)
				m.On("CreateInstance", mock.Anything, mock.MatchedBy(func(inst model.Instance) bool {
					return inst.ID != "" && inst.ModpackVersionID == model.LatestVersionMarker && inst.CreatedAt.Equal(now)
				})).Once().Return(nil)
			},
			expVersion: model.LatestVersionMarker,
		},

		"An instance with version should be pinned": {
			req: instanceadd.Request{Name: "skyblock", ModpackID: "mp-1", Version: "v3", Dir: "/data/skyblock"},
			mock: func(m *storagemock.MockInstanceRepository) {
				m.On("GetInstanceByName", mock.Anything, "skyblock").Once().Return(nil, model.ErrNotFound)
				m.On("CreateInstance", mock.Anything, mock.Anything).Once().Return(nil)
			},
			expVersion: "v3",
		},

		"A duplicated name should fail": {
			req: instanceadd.Request{Name: "skyblock", ModpackID: "mp-1", Dir: "/data/skyblock"},
			mock: func(m *storagemock.MockInstanceRepository) {
				m.On("GetInstanceByName", mock.Anything, "skyblock").Once().Return(&model.Instance{ID: "x"}, nil)
			},
			expErr: model.ErrAlreadyExists,
		},

		"An invalid request should fail before touching the repository": {
			req:    instanceadd.Request{Name: "skyblock", Dir: "/data/skyblock"},
			mock:   func(m *storagemock.MockInstanceRepository) {},
			expErr: model.ErrNotValid,
		},

		"A storage error should fail": {
			req: instanceadd.Request{Name: "skyblock", ModpackID: "mp-1", Dir: "/data/skyblock"},
			mock: func(m *storagemock.MockInstanceRepository) {
				m.On("GetInstanceByName", mock.Anything, "skyblock").Once().Return(nil, errStorage)
			},
			expErr: errStorage,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mRepo := storagemock.NewMockInstanceRepository(t)
			test.mock(mRepo)

			svc, err := instanceadd.NewService(instanceadd.ServiceConfig{
				Repository: mRepo,
				Now:        func() time.Time { return now },
			})
			require.NoError(err)

			inst, err := svc.Run(context.TODO(), test.req)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(err)
			assert.Equal(test.expVersion, inst.ModpackVersionID)
			assert.Equal(test.req.Name, inst.Name)
		})
	}
}

func TestService_RunCreatesDir(t *testing.T) {
	require := require.New(t)

	mRepo := storagemock.NewMockInstanceRepository(t)
	mRepo.On("GetInstanceByName", mock.Anything, "skyblock").Once().Return(nil, model.ErrNotFound)
	mRepo.On("CreateInstance", mock.Anything, mock.Anything).Once().Return(nil)

	svc, err := instanceadd.NewService(instanceadd.ServiceConfig{Repository: mRepo})
	require.NoError(err)

	dir := filepath.Join(t.TempDir(), "instances", "skyblock")
	_, err = svc.Run(context.TODO(), instanceadd.Request{Name: "skyblock", ModpackID: "mp-1", Dir: dir, CreateDir: true})
	require.NoError(err)
	require.DirExists(dir)
}

