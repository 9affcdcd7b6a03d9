package usecase

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audience-client/internal/adapters/exporter"
	"audience-client/internal/adapters/source"
	"audience-client/internal/audienceapi"
	"audience-client/internal/core/services"
	"audience-client/internal/domain"
	"audience-client/internal/metrics"
	"audience-client/internal/mockapi"
)

type integrationEnv struct {
	store   *mockapi.Store
	client  *audienceapi.Client
	metrics *metrics.Metrics
	outbox  string
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()
	store := mockapi.NewStore(1, 1000)
	ts := httptest.NewServer(mockapi.New(store, mockapi.WithPageSize(1), mockapi.WithLogger(discardLogger())).Handler())
	t.Cleanup(ts.Close)

	m := metrics.New()
	return &integrationEnv{
		store:   store,
		client:  audienceapi.NewClient(ts.URL, audienceapi.WithHTTPClient(ts.Client()), audienceapi.WithMetrics(m), audienceapi.WithLogger(discardLogger())),
		metrics: m,
		outbox:  t.TempDir(),
	}
}

func (e *integrationEnv) useCase(ids []string, cfg BuildConfig) *BuildUseCase {
	log := discardLogger()
	return NewBuildUseCase(cfg,
		source.NewMemorySource(ids),
		services.NewSegmentService(e.client,
			services.WithChunkSize(2),
			services.WithSegmentLogger(log),
			services.WithSegmentMetrics(e.metrics)),
		services.NewAudienceService(e.client,
			services.WithSizeBounds(1, 1000),
			services.WithAudienceLogger(log)),
		services.NewReconciler(e.client, services.WithReconcilerLogger(log)),
		WithResultWriters(exporter.NewJSONFileWriter(e.outbox, false)),
		WithBuildMetrics(e.metrics),
		WithBuildLogger(log),
	)
}

func readResult(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestBuildUseCase_AgainstMockService(t *testing.T) {
	groupings := domain.Groupings{"by_gender": {GroupBy: []string{"user.gender"}}}

	t.Run("построение, связывание и повторный запуск с новым сегментом", func(t *testing.T) {
		env := newIntegrationEnv(t)

		first, err := env.useCase([]string{"1", "2", "3", "4", "5"}, BuildConfig{
			AudienceName:        "aud",
			SegmentNames:        []string{"seg_a"},
			Groupings:           groupings,
			AddAudienceMetadata: true,
		}).Run(t.Context())
		require.NoError(t, err)

		require.NotNil(t, first.Segment)
		assert.EqualValues(t, 5, first.Segment.NumUserIDs)
		assert.Equal(t, []string{first.Segment.ID}, first.Audience.SegmentIDs)
		assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.ChunksAppended))

		wantPath := filepath.Join(env.outbox, "aud_results.json")
		assert.Equal(t, []string{wantPath}, first.OutputPaths)
		result := readResult(t, wantPath)
		require.Contains(t, result, "by_gender")
		var meta domain.AudienceMetadata
		require.NoError(t, json.Unmarshal(result["audience"], &meta))
		assert.Equal(t, []string{"seg_a"}, meta.SegmentNames)

		second, err := env.useCase([]string{"6", "7"}, BuildConfig{
			AudienceName: "aud",
			SegmentNames: []string{"seg_b", "seg_a"},
			Groupings:    groupings,
		}).Run(t.Context())
		require.NoError(t, err)

		assert.NotEqual(t, first.Audience.ID, second.Audience.ID)
		assert.Equal(t, []string{first.Segment.ID, second.Segment.ID}, second.Audience.SegmentIDs)
		assert.EqualValues(t, 7, second.Audience.NumUserIDs)
		assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Reconciliations.WithLabelValues("relinked")))

		_, err = env.store.GetAudience(first.Audience.ID)
		assert.ErrorIs(t, err, mockapi.ErrNotFound)
	})

	t.Run("сегмент блокируется посреди загрузки", func(t *testing.T) {
		env := newIntegrationEnv(t)
		calls := 0
		env.store.SetAppendHook(func(_ string, call int) error {
			calls = call
			if call == 2 {
				return &mockapi.HTTPError{Status: http.StatusBadRequest, Message: "Segment is not modifiable"}
			}
			return nil
		})

		state, err := env.useCase([]string{"1", "2", "3", "4", "5"}, BuildConfig{
			AudienceName: "aud",
			SegmentNames: []string{"seg_a"},
			Groupings:    groupings,
		}).Run(t.Context())

		var appendErr *services.AppendError
		require.ErrorAs(t, err, &appendErr)
		assert.True(t, appendErr.Locked())
		assert.Equal(t, 2, appendErr.Chunk)
		assert.Equal(t, 3, appendErr.Total)
		assert.Equal(t, StageSegmentBuild, state.Stage)
		assert.Equal(t, 2, calls)

		seg, err := env.store.GetSegment(appendErr.SegmentID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, seg.NumUserIDs)

		audiences, _ := env.store.ListAudiences(0, 10)
		assert.Empty(t, audiences)
		assert.NoFileExists(t, filepath.Join(env.outbox, "aud_results.json"))
	})

	t.Run("аудитория без сегментов не создается", func(t *testing.T) {
		env := newIntegrationEnv(t)

		state, err := env.useCase(nil, BuildConfig{
			AudienceName: "aud",
			SegmentNames: []string{"missing"},
		}).Run(t.Context())

		assert.ErrorIs(t, err, services.ErrNoSegments)
		assert.Equal(t, StageAudienceResolution, state.Stage)
		assert.Zero(t, env.store.Usage().AudiencesCreated)
	})
}
