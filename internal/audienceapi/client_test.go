package audienceapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audience-client/internal/domain"
	"audience-client/internal/metrics"
	"audience-client/internal/mockapi"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockService(t *testing.T, pageSize int) (*Client, *mockapi.Store, *metrics.Metrics) {
	t.Helper()
	store := mockapi.NewStore(1, 1000)
	srv := mockapi.New(store, mockapi.WithPageSize(pageSize), mockapi.WithLogger(discardLogger()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	m := metrics.New()
	return NewClient(ts.URL, WithMetrics(m), WithLogger(discardLogger())), store, m
}

func TestClient_SegmentsAndAudiences(t *testing.T) {
	ctx := context.Background()
	client, store, m := newMockService(t, 2)

	seg, err := client.CreateSegment(ctx, domain.NewSegment{Name: "seg", BuildMode: domain.BuildModeEngaged, AccountID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "seg", seg.Name)
	assert.NotEmpty(t, seg.ID)

	require.NoError(t, client.AppendSegmentIDs(ctx, seg.ID, []string{"1", "2", "3"}))

	got, err := client.GetSegment(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.NumUserIDs)

	for _, name := range []string{"x", "y"} {
		_, err := store.CreateSegment(name)
		require.NoError(t, err)
	}

	page, err := client.ListSegments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "2", page.Next)

	page, err = client.ListSegments(ctx, page.Next)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Empty(t, page.Next)

	aud, err := client.CreateAudience(ctx, "aud", []string{seg.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{seg.ID}, aud.SegmentIDs)

	res, err := client.QueryAudience(ctx, aud.ID, domain.Groupings{"gender": {GroupBy: []string{"user.gender"}}})
	require.NoError(t, err)
	assert.Contains(t, res, "gender")

	usage, err := client.Usage(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, usage["queries"])

	require.NoError(t, client.DeleteAudience(ctx, aud.ID))
	require.NoError(t, client.DeleteSegment(ctx, seg.ID))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("POST", "audiences.create", "201")))
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("блокированный сегмент распознается один раз", func(t *testing.T) {
		client, store, _ := newMockService(t, 10)
		seg, _ := store.CreateSegment("seg")
		require.NoError(t, store.LockSegment(seg.ID))

		err := client.AppendSegmentIDs(ctx, seg.ID, []string{"1"})

		assert.ErrorIs(t, err, domain.ErrSegmentLocked)
		apiErr, ok := domain.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Contains(t, apiErr.Message, "not modifiable")
	})

	t.Run("404", func(t *testing.T) {
		client, _, _ := newMockService(t, 10)
		_, err := client.GetAudience(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	tests := []struct {
		name    string
		status  int
		body    string
		message string
		reason  domain.ErrorReason
	}{
		{name: "вложенный error", status: 400, body: `{"error":{"message":"bad grouping"}}`, message: "bad grouping", reason: domain.ReasonGeneric},
		{name: "строковый error", status: 403, body: `{"error":"forbidden"}`, message: "forbidden", reason: domain.ReasonGeneric},
		{name: "текстовое тело", status: 500, body: "upstream exploded", message: "upstream exploded", reason: domain.ReasonGeneric},
		{name: "пустое тело", status: 502, body: "", message: "Bad Gateway", reason: domain.ReasonGeneric},
		{name: "лимит запросов", status: 429, body: `{"errors":[{"code":88,"message":"Rate limit exceeded"}]}`, message: "Rate limit exceeded", reason: domain.ReasonRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			_, err := NewClient(ts.URL, WithLogger(discardLogger())).Usage(ctx)

			apiErr, ok := domain.AsAPIError(err)
			require.True(t, ok, "ожидалась APIError, получено %v", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.reason, apiErr.Reason)
			assert.Equal(t, tt.body, apiErr.Body)
		})
	}

	t.Run("204 не считается ошибкой", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ts.Close()

		assert.NoError(t, NewClient(ts.URL, WithLogger(discardLogger())).DeleteSegment(ctx, "s1"))
	})

	t.Run("сетевая ошибка", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := ts.URL
		ts.Close()

		m := metrics.New()
		_, err := NewClient(url, WithMetrics(m), WithLogger(discardLogger())).Usage(ctx)

		require.Error(t, err)
		_, isAPI := domain.AsAPIError(err)
		assert.False(t, isAPI)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("GET", "usage", "error")))
	})
}

func TestClient_RequestShape(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{}`)
	}))
	defer ts.Close()
	client := NewClient(ts.URL, WithLogger(discardLogger()))
	ctx := context.Background()

	_, err := client.ListAudiences(ctx, "abc=")
	require.NoError(t, err)
	assert.Equal(t, AudiencesPath, gotPath)
	assert.Equal(t, "next=abc%3D", gotQuery)

	require.NoError(t, client.AppendSegmentIDs(ctx, "s1", []string{"7", "8"}))
	assert.Equal(t, SegmentsPath+"/s1/ids", gotPath)
	assert.Equal(t, []any{"7", "8"}, gotBody["user_ids"])

	_, err = client.QueryAudience(ctx, "a1", domain.Groupings{"g": {GroupBy: []string{"user.language"}}})
	require.NoError(t, err)
	assert.Equal(t, AudiencesPath+"/a1/query", gotPath)
	assert.Equal(t, map[string]any{"g": map[string]any{"group_by": []any{"user.language"}}}, gotBody["groupings"])
}

func TestNewOAuthHTTPClient(t *testing.T) {
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{}`)
	}))
	defer ts.Close()

	hc := NewOAuthHTTPClient(context.Background(), Credentials{
		ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessTokenSecret: "ats",
	}, 5*time.Second)

	_, err := NewClient(ts.URL, WithHTTPClient(hc), WithLogger(discardLogger())).Usage(context.Background())
	require.NoError(t, err)
	assert.Contains(t, auth, "OAuth ")
	assert.Contains(t, auth, `oauth_consumer_key="ck"`)
	assert.Contains(t, auth, `oauth_token="at"`)
}
