package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uc-package/swimctl/internal/auth"
	"github.com/uc-package/swimctl/internal/catalyst"
	"github.com/uc-package/swimctl/internal/cleanup"
	"github.com/uc-package/swimctl/internal/filter"
	"github.com/uc-package/swimctl/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCleaner struct {
	images  []models.ImageRecord
	err     error
	spec    filter.Spec
	opts    cleanup.Options
	runs    int
	preview int
}

func (f *fakeCleaner) Preview(ctx context.Context, spec filter.Spec) ([]models.ImageRecord, error) {
	f.preview++
	f.spec = spec
	return f.images, f.err
}

func (f *fakeCleaner) Run(ctx context.Context, spec filter.Spec, opts cleanup.Options) (*cleanup.Report, error) {
	f.runs++
	f.spec = spec
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	outcome := cleanup.OutcomeDeleted
	if opts.DryRun {
		outcome = cleanup.OutcomeSkippedDryRun
	}
	report := &cleanup.Report{RunID: "run-1", DryRun: opts.DryRun, Counts: map[cleanup.Outcome]int{}}
	for _, img := range f.images {
		report.Entries = append(report.Entries, cleanup.Entry{Image: img, Outcome: outcome})
		report.Counts[outcome]++
	}
	return report, nil
}

type fakeObserver struct {
	observed int
	errors   int
}

func (o *fakeObserver) Observe(report *cleanup.Report) { o.observed++ }
func (o *fakeObserver) ObserveError()                  { o.errors++ }

func newTestRouter(cleaner Cleaner, observer RunObserver, server *models.ServerConfig, config *models.Config) *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	api.Use(auth.AuthMiddleware(server))
	api.GET("/images", NewImageHandler(cleaner).ListImages)
	api.POST("/cleanup", NewCleanupHandler(cleaner, observer).RunCleanup)
	api.GET("/config", NewConfigHandler(config).GetConfig)
	return r
}

func do(r *gin.Engine, method, target, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListImages(t *testing.T) {
	cleaner := &fakeCleaner{images: []models.ImageRecord{{ID: "1", Name: "cat9k.bin", Family: "cat9k"}}}
	r := newTestRouter(cleaner, nil, &models.ServerConfig{}, models.DefaultConfig())

	w := do(r, http.MethodGet, "/api/images?family=cat9k&unusedOnly=true&olderThanDays=90&golden=false", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ImageListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "1", resp.Images[0].ID)

	require.NotNil(t, cleaner.spec.Family)
	assert.Equal(t, "cat9k", *cleaner.spec.Family)
	assert.True(t, cleaner.spec.UnusedOnly)
	assert.Equal(t, 90, *cleaner.spec.OlderThanDays)
	assert.False(t, *cleaner.spec.Golden)
}

func TestListImagesErrors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{"bad integer", "?olderThanDays=soon", nil, http.StatusBadRequest},
		{"bad boolean", "?unusedOnly=maybe", nil, http.StatusBadRequest},
		{"bad type", "?type=firmware", nil, http.StatusBadRequest},
		{"bad regex", "", &filter.InvalidFilterError{Field: "nameRegex", Value: "["}, http.StatusBadRequest},
		{"upstream auth", "", &catalyst.APIError{Op: "list images", StatusCode: http.StatusUnauthorized}, http.StatusBadGateway},
		{"upstream down", "", &catalyst.APIError{Op: "list images", StatusCode: http.StatusServiceUnavailable}, http.StatusBadGateway},
		{"deadline", "", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaner := &fakeCleaner{err: tt.err}
			r := newTestRouter(cleaner, nil, &models.ServerConfig{}, models.DefaultConfig())
			w := do(r, http.MethodGet, "/api/images"+tt.query, "", nil)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRunCleanupDefaultsToDryRun(t *testing.T) {
	cleaner := &fakeCleaner{images: []models.ImageRecord{{ID: "1"}}}
	observer := &fakeObserver{}
	r := newTestRouter(cleaner, observer, &models.ServerConfig{}, models.DefaultConfig())

	w := do(r, http.MethodPost, "/api/cleanup", "", CleanupRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, cleaner.opts.DryRun)
	assert.Equal(t, 1, observer.observed)

	var report cleanup.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, cleanup.OutcomeSkippedDryRun, report.Entries[0].Outcome)
}

func TestRunCleanupDelete(t *testing.T) {
	server := &models.ServerConfig{JWTSecret: "secret"}
	dryRun := false
	req := CleanupRequest{
		Filter:  models.FilterConfig{Family: "cat9k"},
		DryRun:  &dryRun,
		Confirm: true,
		Unlock:  models.UnlockConfig{Enabled: true, SiteID: "-1", DeviceFamilyIdentifier: "286315874", DeviceRole: "ALL"},
		Limit:   5,
	}

	t.Run("read-only token is forbidden", func(t *testing.T) {
		cleaner := &fakeCleaner{}
		token, err := auth.IssueToken("secret", "viewer", false, time.Hour)
		require.NoError(t, err)

		w := do(newTestRouter(cleaner, nil, server, models.DefaultConfig()), http.MethodPost, "/api/cleanup", token, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, 0, cleaner.runs)
	})

	t.Run("operator token deletes", func(t *testing.T) {
		cleaner := &fakeCleaner{images: []models.ImageRecord{{ID: "1", Family: "cat9k"}}}
		token, err := auth.IssueToken("secret", "operator", true, time.Hour)
		require.NoError(t, err)

		w := do(newTestRouter(cleaner, nil, server, models.DefaultConfig()), http.MethodPost, "/api/cleanup", token, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, cleaner.opts.DryRun)
		assert.True(t, cleaner.opts.AutoConfirm)
		assert.True(t, cleaner.opts.UnlockGolden)
		assert.Equal(t, "ALL", cleaner.opts.Scope.DeviceRole)
		assert.Equal(t, 5, cleaner.opts.Limit)
	})

	t.Run("empty filter is rejected", func(t *testing.T) {
		cleaner := &fakeCleaner{}
		token, err := auth.IssueToken("secret", "operator", true, time.Hour)
		require.NoError(t, err)

		noFilter := req
		noFilter.Filter = models.FilterConfig{}
		w := do(newTestRouter(cleaner, nil, server, models.DefaultConfig()), http.MethodPost, "/api/cleanup", token, noFilter)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 0, cleaner.runs)
	})
}

func TestRunCleanupValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CleanupRequest
	}{
		{"bad site id", CleanupRequest{Unlock: models.UnlockConfig{SiteID: "global"}}},
		{"bad family id", CleanupRequest{Unlock: models.UnlockConfig{DeviceFamilyIdentifier: "cat9k"}}},
		{"negative limit", CleanupRequest{Limit: -1}},
		{"too much concurrency", CleanupRequest{Concurrency: 64}},
		{"bad golden", CleanupRequest{Filter: models.FilterConfig{Golden: "sometimes"}}},
		{"missing scope", CleanupRequest{Unlock: models.UnlockConfig{Enabled: true, SiteID: "-1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer := &fakeObserver{}
			r := newTestRouter(&fakeCleaner{}, observer, &models.ServerConfig{}, models.DefaultConfig())
			w := do(r, http.MethodPost, "/api/cleanup", "", tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetConfigIsRedacted(t *testing.T) {
	config := models.DefaultConfig()
	config.Catalyst.BaseURL = "https://dnac.example.com"
	config.Catalyst.Username = "admin"
	config.Catalyst.Password = "super-secret"
	config.Server.JWTSecret = "jwt-secret"
	config.Server.APIKeys = []string{"key-1"}

	token, err := auth.IssueToken("jwt-secret", "viewer", false, time.Hour)
	require.NoError(t, err)

	w := do(newTestRouter(&fakeCleaner{}, nil, &config.Server, config), http.MethodGet, "/api/config", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.NotContains(t, body, "super-secret")
	assert.NotContains(t, body, "jwt-secret")
	assert.NotContains(t, body, "key-1")

	var resp ConfigResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.HasCredentials)
	assert.True(t, resp.AuthEnabled)
	assert.Equal(t, "https://dnac.example.com", resp.BaseURL)
}
