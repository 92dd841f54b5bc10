package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uc-package/swimctl/internal/cleanup"
	"github.com/uc-package/swimctl/internal/models"
)

func sampleReport() *cleanup.Report {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &cleanup.Report{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Entries: []cleanup.Entry{
			{Outcome: cleanup.OutcomeDeleted, Polls: 3},
			{Outcome: cleanup.OutcomeDeleted, Polls: 2},
			{Outcome: cleanup.OutcomeDeleteFailed},
		},
		Counts: map[cleanup.Outcome]int{
			cleanup.OutcomeDeleted:      2,
			cleanup.OutcomeDeleteFailed: 1,
		},
	}
}

func TestObserve(t *testing.T) {
	r := NewRecorder()
	r.Observe(sampleReport())

	assert.Equal(t, 2.0, testutil.ToFloat64(r.outcomes.WithLabelValues("deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("delete-failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.candidates))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.polls))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("failed")))
	assert.Equal(t, 90.0, testutil.ToFloat64(r.duration))

	r.ObserveError()
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("error")))

	r.Observe(nil)
	assert.Equal(t, 3.0, testutil.ToFloat64(r.candidates))
}

func TestObserveDryRun(t *testing.T) {
	r := NewRecorder()
	report := sampleReport()
	report.DryRun = true
	r.Observe(report)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("dry_run")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.runs.WithLabelValues("failed")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe(sampleReport())

	path := filepath.Join(t.TempDir(), "swimctl.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `swim_cleanup_images_total{outcome="deleted"} 2`)
	assert.Contains(t, text, "swim_cleanup_last_run_duration_seconds 90")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRecorder()
	r.Observe(sampleReport())
	r.Export(context.Background(), models.MetricsConfig{PushgatewayURL: srv.URL, Job: "swim-nightly"})

	assert.True(t, strings.HasPrefix(gotPath, "/metrics/job/swim-nightly"), gotPath)
	assert.NotEmpty(t, gotBody)
}
