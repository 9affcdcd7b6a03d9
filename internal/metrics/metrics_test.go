package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Run("ObserveAPI считает по статусу", func(t *testing.T) {
		m := New()
		m.ObserveAPI("GET", "segments", 200, time.Millisecond)
		m.ObserveAPI("GET", "segments", 200, time.Millisecond)
		m.ObserveAPI("POST", "segment_ids", 0, time.Millisecond)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("GET", "segments", "200")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("POST", "segment_ids", "error")))
	})

	t.Run("nil-получатель не паникует", func(t *testing.T) {
		var m *Metrics
		assert.NotPanics(t, func() {
			m.ObserveAPI("GET", "x", 200, 0)
			m.AddIngested(3)
			m.IncChunkAppended()
			m.ObservePipeline("query", "completed")
			m.ObserveReconciliation("relinked")
			_ = m.WriteTextfile("ignored")
		})
	})

	t.Run("WriteTextfile", func(t *testing.T) {
		m := New()
		m.AddIngested(5)
		path := filepath.Join(t.TempDir(), "audience.prom")

		require.NoError(t, m.WriteTextfile(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "audience_ids_ingested_total 5"))
	})
}
