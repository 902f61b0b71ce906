package versiongate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/packlaunch/internal/model"
	"github.com/slok/packlaunch/internal/versiongate"
)

func TestHTTPQuerierLatestVersion(t *testing.T) {
	tests := map[string]struct {
		current  string
		handler  http.HandlerFunc
		expInfo  model.VersionInfo
		expErr   bool
		expQuery string
	}{
		"A valid response should be decoded.": {
			current: "v1",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"hasUpdate":true,"latestVersion":"v2"}`))
			},
			expInfo:  model.VersionInfo{HasUpdate: true, LatestVersion: "v2"},
			expQuery: "currentVersion=v1",
		},

		"Without current version no query should be sent.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"hasUpdate":false,"latestVersion":"v2"}`))
			},
			expInfo: model.VersionInfo{LatestVersion: "v2"},
		},

		"A server error should fail.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expErr: true,
		},

		"An invalid body should fail.": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{`))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			var gotPath, gotQuery string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotQuery = r.URL.RawQuery
				test.handler(w, r)
			}))
			defer srv.Close()

			q, err := versiongate.NewHTTPQuerier(versiongate.HTTPQuerierConfig{URL: srv.URL + "/api"})
			require.NoError(err)

			info, err := q.LatestVersion(context.TODO(), "mp-1", test.current)

			if test.expErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(test.expInfo, info)
			assert.Equal("/api/modpacks/mp-1/check-update", gotPath)
			assert.Equal(test.expQuery, gotQuery)
		})
	}
}

func TestHTTPQuerierUnreachableDegradesThroughGate(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	q, err := versiongate.NewHTTPQuerier(versiongate.HTTPQuerierConfig{URL: url})
	require.NoError(t, err)
	g, err := versiongate.NewGate(versiongate.GateConfig{Querier: q})
	require.NoError(t, err)

	dec := g.Decide(context.TODO(), model.Instance{ModpackID: "mp-1", ModpackVersionID: model.LatestVersionMarker, LastKnownVersion: "v1"})
	assert.Equal(t, model.FlowLightweight, dec.Flow)
	assert.True(t, dec.Offline)
}
