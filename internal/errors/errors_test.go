package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("sentinel")

func TestAppErrorConstructors(t *testing.T) {
	tests := []struct {
		name           string
		err            *AppError
		expectedMsg    string
		expectedCat    ErrorCategory
		expectedStatus int
	}{
		{
			name:           "validation",
			err:            NewValidationError("Please fill all fields"),
			expectedMsg:    "[VALIDATION_ERROR] Please fill all fields",
			expectedCat:    CategoryValidation,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "format",
			err:            NewFormatError("chest_pain", "x - Typical", nil),
			expectedMsg:    `[FORMAT_ERROR] malformed chest_pain: "x - Typical"`,
			expectedCat:    CategoryFormat,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "model load",
			err:            NewModelLoadError("failed to read model artifact", errSentinel),
			expectedMsg:    "[MODEL_LOAD_ERROR] failed to read model artifact",
			expectedCat:    CategoryModelLoad,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "illegal state",
			err:            NewIllegalStateError("model not loaded", errSentinel),
			expectedMsg:    "[ILLEGAL_STATE] model not loaded",
			expectedCat:    CategoryIllegalState,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "unsupported output",
			err:            NewUnsupportedOutputError("string", nil),
			expectedMsg:    "[UNSUPPORTED_OUTPUT_TYPE] unsupported model output type: string",
			expectedCat:    CategoryUnsupportedOutput,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "rate limit",
			err:            NewRateLimitError("1s"),
			expectedMsg:    "[RATE_LIMIT_EXCEEDED] Rate limit exceeded",
			expectedCat:    CategoryRateLimit,
			expectedStatus: http.StatusTooManyRequests,
		},
		{
			name:           "configuration",
			err:            NewConfigurationError("scale must be non-zero", nil),
			expectedMsg:    "[CONFIGURATION_ERROR] scale must be non-zero",
			expectedCat:    CategoryConfiguration,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())
			assert.Equal(t, tt.expectedCat, tt.err.Category)
			assert.Equal(t, tt.expectedStatus, tt.err.HTTPStatus)
			assert.True(t, Is(tt.err, tt.expectedCat))
		})
	}
}

func TestAppErrorUnwrapsToCause(t *testing.T) {
	err := NewIllegalStateError("model not loaded", errSentinel)
	wrapped := fmt.Errorf("predict: %w", err)

	assert.ErrorIs(t, wrapped, errSentinel)
	assert.True(t, Is(wrapped, CategoryIllegalState))
	assert.False(t, Is(wrapped, CategoryValidation))
}

func TestToAppError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToAppError(nil))
	})

	t.Run("wrapped app error is unwrapped", func(t *testing.T) {
		orig := NewValidationError("bad")
		got := ToAppError(fmt.Errorf("ctx: %w", orig))
		assert.Same(t, orig, got)
	})

	t.Run("context errors become timeouts", func(t *testing.T) {
		assert.Equal(t, CategoryTimeout, ToAppError(context.Canceled).Category)
		assert.Equal(t, CategoryTimeout, ToAppError(context.DeadlineExceeded).Category)
	})

	t.Run("anything else is internal", func(t *testing.T) {
		got := ToAppError(errors.New("boom"))
		assert.Equal(t, CategoryInternal, got.Category)
		assert.ErrorIs(t, got, got.Unwrap())
	})
}

func TestErrorHandlerWritesResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandler(), RecoveryHandler())
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(NewValidationError("Please enter a valid age (20–100)"))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("unexpected")
	})

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/fail", nil)
	require.NoError(t, err)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Please enter a valid age (20–100)","code":"VALIDATION_ERROR","category":"validation"}`, w.Body.String())

	w = httptest.NewRecorder()
	req, err = http.NewRequest(http.MethodGet, "/panic", nil)
	require.NoError(t, err)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}
