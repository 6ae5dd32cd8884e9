package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/config"
	"datapipe/internal/dataprocessing"
	"datapipe/internal/extract"
	"datapipe/internal/operations"
	"datapipe/internal/store"
	"datapipe/pkg/contracts/domain"
)

const sourceCSV = `med_inc,house_age,ave_rooms,ave_bedrms,population,ave_occup,latitude,longitude,med_house_val,region,year
8.3252,41,6.98,1.02,322,2.55,37.88,-122.23,2.5,coastal,2024
7.2574,52,8.28,1.07,496,2.80,37.85,-122.24,2.6,coastal,2024
5.6431,52,5.82,1.07,558,2.18,37.85,-122.25,2.7,inland,2024
2.0804,42,4.29,1.12,1206,2.03,37.84,-122.26,2.8,inland,2023
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "housing.csv")
	require.NoError(t, os.WriteFile(path, []byte(sourceCSV), 0o644))

	st := store.NewMemStore()
	registry := operations.NewRegistry()
	registry.MustRegister(
		operations.NewExtractStage(extract.New(path, 0, nil), st),
		operations.NewCleanStage(dataprocessing.NewCleaner(nil), st, config.CleaningConfig{
			RemoveOutliers:   true,
			OutlierThreshold: 1.5,
			OutlierColumns:   domain.DefaultOutlierColumns(),
			NumericFill:      dataprocessing.FillMean,
			StringFill:       "unknown",
		}, nil),
		operations.NewFeatureStage(dataprocessing.NewBuilder(nil), st),
		operations.NewReportStage(st, domain.FormatText, nil),
	)
	runner := operations.NewRunner(registry, nil, nil)
	service := NewPipelineService(runner, nil)

	router := NewRouter(config.ServerConfig{}, NewPipelineHandler(service, nil), NewHealthHandler("test"), nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func startRun(t *testing.T, srv *httptest.Server, body string) (*http.Response, operations.RunSnapshot) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/pipeline", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var snap operations.RunSnapshot
	if resp.StatusCode == http.StatusAccepted {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	}
	return resp, snap
}

func getRun(t *testing.T, srv *httptest.Server, id string) (int, operations.RunSnapshot) {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/pipeline/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()

	var snap operations.RunSnapshot
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	}
	return resp.StatusCode, snap
}

func TestStartRunAndPollToCompletion(t *testing.T) {
	srv := newTestServer(t)

	resp, snap := startRun(t, srv, `{"year":2024,"format":"json"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, 2024, snap.Year)

	require.Eventually(t, func() bool {
		code, cur := getRun(t, srv, snap.ID)
		return code == http.StatusOK && cur.Status == operations.RunStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	_, final := getRun(t, srv, snap.ID)
	require.Len(t, final.Stages, 4)
	for _, stage := range final.Stages {
		assert.Equal(t, operations.StageStatusCompleted, stage.Status, stage.ID)
	}
	assert.Len(t, final.Artifacts, 5)
}

func TestStartRunFailurePropagatesToSnapshot(t *testing.T) {
	srv := newTestServer(t)

	resp, snap := startRun(t, srv, `{"year":1999}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, cur := getRun(t, srv, snap.ID)
		return cur.Status == operations.RunStatusFailed
	}, 5*time.Second, 20*time.Millisecond)

	_, final := getRun(t, srv, snap.ID)
	assert.NotEmpty(t, final.Error)
	assert.Equal(t, operations.StageStatusFailed, final.Stages[0].Status)
	assert.Equal(t, operations.StageStatusSkipped, final.Stages[1].Status)
}

func TestStartRunValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing year", body: `{}`},
		{name: "negative year", body: `{"year":-3}`},
		{name: "bad format", body: `{"year":2024,"format":"xml"}`},
		{name: "not json", body: `year=2024`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := startRun(t, srv, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv := newTestServer(t)
	code, _ := getRun(t, srv, "no-such-run")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListRuns(t *testing.T) {
	srv := newTestServer(t)
	_, snap := startRun(t, srv, `{"year":2024}`)

	resp, err := http.Get(srv.URL + "/api/pipeline")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Runs []operations.RunSnapshot `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, snap.ID, body.Runs[0].ID)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

// blockingStage holds its run open until released, so conflict handling can
// be exercised deterministically.
type blockingStage struct {
	operations.BaseStage
	release chan struct{}
}

func (s *blockingStage) Execute(ctx context.Context, state *operations.RunState) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestConcurrentRunsSameYearConflict(t *testing.T) {
	block := &blockingStage{
		BaseStage: operations.NewBaseStage("block", "Block"),
		release:   make(chan struct{}),
	}
	registry := operations.NewRegistry()
	registry.MustRegister(block)
	runner := operations.NewRunner(registry, nil, nil)
	service := NewPipelineService(runner, nil)
	router := NewRouter(config.ServerConfig{}, NewPipelineHandler(service, nil), NewHealthHandler("test"), nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	defer close(block.release)

	first, err := http.Post(srv.URL+"/api/pipeline", "application/json",
		bytes.NewBufferString(`{"year":2024}`))
	require.NoError(t, err)
	first.Body.Close()
	require.Equal(t, http.StatusAccepted, first.StatusCode)

	second, err := http.Post(srv.URL+"/api/pipeline", "application/json",
		bytes.NewBufferString(`{"year":2024}`))
	require.NoError(t, err)
	defer second.Body.Close()
	assert.Equal(t, http.StatusConflict, second.StatusCode)

	// A different year is not blocked.
	other, err := http.Post(srv.URL+"/api/pipeline", "application/json",
		bytes.NewBufferString(`{"year":2025}`))
	require.NoError(t, err)
	other.Body.Close()
	assert.Equal(t, http.StatusAccepted, other.StatusCode)
}
