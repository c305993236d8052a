package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/heartrisk/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
	"github.com/ZanzyTHEbar/heartrisk/internal/inference"
	"github.com/ZanzyTHEbar/heartrisk/internal/middleware"
	"github.com/ZanzyTHEbar/heartrisk/internal/monitoring"
	"github.com/ZanzyTHEbar/heartrisk/internal/security"
	"github.com/ZanzyTHEbar/heartrisk/internal/types"
)

type fixedBackend struct {
	score float32
}

func (b fixedBackend) Infer([]float32) (float32, error) { return b.score, nil }
func (b fixedBackend) Close() error                     { return nil }

// setupTestRouter builds the full host around a session whose runtime is a
// fixed score. The session is loaded unless loaded is false.
func setupTestRouter(t *testing.T, score float32, loaded bool) (*gin.Engine, *inference.Session) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manifest := analysis.DefaultManifest()
	metrics := monitoring.NewMetrics()
	logger := monitoring.NewLogger(&bytes.Buffer{}, slog.LevelInfo, "json")

	session, err := inference.NewSession(inference.Config{
		Assets:       fstest.MapFS{manifest.Artifact: &fstest.MapFile{Data: []byte("onnx")}},
		Artifact:     manifest.Artifact,
		ModelVersion: manifest.Version,
		Spec:         inference.Spec{InputName: manifest.InputName, Width: analysis.NumFeatures},
		Loader: inference.LoaderFunc(func(ctx context.Context, artifact []byte, spec inference.Spec) (inference.Backend, error) {
			return fixedBackend{score: score}, nil
		}),
		Metrics: metrics,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	if loaded {
		require.NoError(t, session.Load(context.Background()))
	}

	analyzer, err := analysis.NewAnalyzer(manifest, session, logger, metrics)
	require.NoError(t, err)

	secConfig := security.DefaultSecurityConfig()
	router, err := setupRouter(routerDeps{
		analyzer:       analyzer,
		status:         session,
		metrics:        metrics,
		logger:         logger,
		security:       security.NewSecurityMiddleware(secConfig, metrics),
		securityConfig: secConfig,
		compression:    middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
	})
	require.NoError(t, err)

	return router, session
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		loaded         bool
		expectedStatus int
		expectedState  string
	}{
		{"ready session", true, http.StatusOK, "ready"},
		{"unloaded session", false, http.StatusServiceUnavailable, "unloaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupTestRouter(t, 0.5, tt.loaded)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			var body types.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedState, body.ModelState)
			assert.Equal(t, "1.0.0", body.ModelVersion)
		})
	}
}

func TestHealthAfterClose(t *testing.T) {
	r, session := setupTestRouter(t, 0.5, true)
	require.NoError(t, session.Close())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func postJSON(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assess", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAssessEndpoint_ValidRequests(t *testing.T) {
	tests := []struct {
		name           string
		score          float32
		body           string
		expectedLabel  analysis.RiskLevel
		expectedText   string
		expectedColors analysis.Colors
	}{
		{
			name:           "high risk",
			score:          0.82,
			body:           `{"age":63,"thalach":150,"sex":"male","chest_pain":"3 - Asymptomatic"}`,
			expectedLabel:  analysis.RiskHigh,
			expectedText:   "82.0%",
			expectedColors: analysis.Palette[analysis.ColorHighRisk],
		},
		{
			name:           "low risk",
			score:          0.3,
			body:           `{"age":45,"thalach":172,"sex":"female","chest_pain":"1 - Atypical Angina"}`,
			expectedLabel:  analysis.RiskLow,
			expectedText:   "70.0%",
			expectedColors: analysis.Palette[analysis.ColorLowRisk],
		},
		{
			name:           "bare chest pain code",
			score:          0.5,
			body:           `{"age":50,"thalach":140,"sex":"m","chest_pain":"2"}`,
			expectedLabel:  analysis.RiskLow,
			expectedText:   "50.0%",
			expectedColors: analysis.Palette[analysis.ColorLowRisk],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupTestRouter(t, tt.score, true)
			w := postJSON(r, tt.body)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var got analysis.Assessment
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

			assert.Equal(t, tt.expectedLabel, got.Label)
			assert.Equal(t, tt.expectedText, got.PercentageText)
			assert.Equal(t, tt.expectedColors, got.Colors)
			assert.Equal(t, "1.0.0", got.ModelVersion)
			assert.NotEmpty(t, got.ID)
			assert.NotEmpty(t, w.Header().Get(monitoring.RequestIDHeader))
		})
	}
}

func TestAssessEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name             string
		loaded           bool
		contentType      string
		body             string
		expectedStatus   int
		expectedCategory apperrors.ErrorCategory
		expectedMessage  string
	}{
		{
			name:             "age out of range",
			loaded:           true,
			body:             `{"age":10,"thalach":150,"sex":"male","chest_pain":"3 - Asymptomatic"}`,
			expectedStatus:   http.StatusBadRequest,
			expectedCategory: apperrors.CategoryValidation,
			expectedMessage:  "Please enter a valid age (20–100)",
		},
		{
			name:             "heart rate out of range",
			loaded:           true,
			body:             `{"age":63,"thalach":250,"sex":"male","chest_pain":"3 - Asymptomatic"}`,
			expectedStatus:   http.StatusBadRequest,
			expectedCategory: apperrors.CategoryValidation,
			expectedMessage:  "Please enter a valid heart rate (60–220)",
		},
		{
			name:             "missing field",
			loaded:           true,
			body:             `{"age":63,"sex":"male","chest_pain":"3 - Asymptomatic"}`,
			expectedStatus:   http.StatusBadRequest,
			expectedCategory: apperrors.CategoryValidation,
			expectedMessage:  "Please fill all fields",
		},
		{
			name:             "non-numeric age",
			loaded:           true,
			body:             `{"age":"sixty","thalach":150,"sex":"male","chest_pain":"3 - Asymptomatic"}`,
			expectedStatus:   http.StatusBadRequest,
			expectedCategory: apperrors.CategoryValidation,
			expectedMessage:  "Invalid number format",
		},
		{
			name:             "unknown sex",
			loaded:           true,
			body:             `{"age":63,"thalach":150,"sex":"x","chest_pain":"3 - Asymptomatic"}`,
			expectedStatus:   http.StatusBadRequest,
			expectedCategory: apperrors.CategoryValidation,
			expectedMessage:  "Please select male or female",
		},
		{
			name:             "malformed chest pain",
			loaded:           true,
			body:             `{"age":63,"thalach":150,"sex":"male","chest_pain":"Asymptomatic"}`,
			expectedStatus:   http.StatusBadRequest,
			expectedCategory: apperrors.CategoryFormat,
		},
		{
			name:             "model not loaded",
			loaded:           false,
			body:             `{"age":63,"thalach":150,"sex":"male","chest_pain":"3 - Asymptomatic"}`,
			expectedStatus:   http.StatusServiceUnavailable,
			expectedCategory: apperrors.CategoryIllegalState,
			expectedMessage:  "model not loaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupTestRouter(t, 0.5, tt.loaded)
			w := postJSON(r, tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			var body apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedCategory, body.Category)
			assert.NotEmpty(t, body.RequestID)
			if tt.expectedMessage != "" {
				assert.Equal(t, tt.expectedMessage, body.Error)
			}
		})
	}
}

func TestAssessEndpoint_UnsupportedContentType(t *testing.T) {
	r, _ := setupTestRouter(t, 0.5, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assess", strings.NewReader("<age>63</age>"))
	req.Header.Set("Content-Type", "text/xml")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestAssessEndpoint_Gzip(t *testing.T) {
	r, _ := setupTestRouter(t, 0.82, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assess",
		strings.NewReader(`{"age":63,"thalach":150,"sex":"male","chest_pain":"3 - Asymptomatic"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	var got analysis.Assessment
	require.NoError(t, json.NewDecoder(zr).Decode(&got))
	assert.Equal(t, analysis.RiskHigh, got.Label)
}

func TestModelInfoEndpoint(t *testing.T) {
	r, _ := setupTestRouter(t, 0.5, true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/model", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var info types.ModelInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "ready", info.State)
	assert.Equal(t, "xgb_heart_model.onnx", info.Artifact)
	assert.Equal(t, []string{"age", "thalach", "sex", "cp"}, info.Features)
	assert.Len(t, info.ChestPainTypes, 4)
	assert.Equal(t, 0.5, info.Threshold)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := setupTestRouter(t, 0.82, true)
	postJSON(r, `{"age":63,"thalach":150,"sex":"male","chest_pain":"3 - Asymptomatic"}`)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `heartrisk_assessments_total{label="High Risk"} 1`)
	assert.Contains(t, body, `heartrisk_model_state{state="ready"} 1`)
	assert.Contains(t, body, `heartrisk_http_requests_total{method="POST",route="/api/v1/assess",status="200"} 1`)
}

func TestRequestIDIsEchoed(t *testing.T) {
	r, _ := setupTestRouter(t, 0.5, true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(monitoring.RequestIDHeader, "req-abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-abc", w.Header().Get(monitoring.RequestIDHeader))
}

func TestFormPage(t *testing.T) {
	r, _ := setupTestRouter(t, 0.82, true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "nonce-")

	form := "age=63&thalach=150&sex=male&chest_pain=3+-+Asymptomatic"
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "High Risk of Heart Disease (82.0%)")
}

func TestUnknownRoute(t *testing.T) {
	r, _ := setupTestRouter(t, 0.5, true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
