package main

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/heartrisk/docs"
	"github.com/ZanzyTHEbar/heartrisk/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
	"github.com/ZanzyTHEbar/heartrisk/internal/frontend"
	"github.com/ZanzyTHEbar/heartrisk/internal/inference"
	"github.com/ZanzyTHEbar/heartrisk/internal/middleware"
	"github.com/ZanzyTHEbar/heartrisk/internal/monitoring"
	"github.com/ZanzyTHEbar/heartrisk/internal/security"
	"github.com/ZanzyTHEbar/heartrisk/internal/types"
)

// statusSource reports the inference session state
type statusSource interface {
	Status() inference.Status
}

// routerDeps is everything the HTTP host needs
type routerDeps struct {
	analyzer        *analysis.Analyzer
	status          statusSource
	metrics         *monitoring.Metrics
	logger          *monitoring.Logger
	security        *security.SecurityMiddleware
	securityConfig  security.SecurityConfig
	compression     *middleware.CompressionMiddleware
	cspReportURI    string
	enableProfiling bool
}

type server struct {
	analyzer *analysis.Analyzer
	status   statusSource
	started  time.Time
}

func setupRouter(deps routerDeps) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(deps.securityConfig.TrustedProxies); err != nil {
		return nil, apperrors.NewConfigurationError("invalid trusted proxies", err)
	}

	// request ID and monitoring first so every response is counted
	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(deps.metrics, deps.logger))
	if deps.compression != nil {
		r.Use(deps.compression.Handler())
	}

	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())

	if len(deps.securityConfig.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  deps.securityConfig.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", monitoring.RequestIDHeader},
			ExposeHeaders: []string{monitoring.RequestIDHeader, "Retry-After"},
			MaxAge:        12 * time.Hour,
		}))
	}

	sm := deps.security
	r.Use(sm.SecurityHeaders)
	r.Use(sm.RequestTimeout)

	s := &server{
		analyzer: deps.analyzer,
		status:   deps.status,
		started:  time.Now(),
	}

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(deps.metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.GET("/model", s.modelInfo)
	api.POST("/assess", sm.ValidateContentType, sm.LimitBody, sm.RateLimitByIP, s.assess)

	tmpl, err := loadFormTemplate()
	if err != nil {
		return nil, err
	}
	form := frontend.NewFormHandler(tmpl, deps.analyzer, deps.analyzer.Manifest().ChestPainTypes, func() string {
		return deps.status.Status().State
	})
	page := r.Group("/", security.CSPMiddleware(deps.cspReportURI))
	page.GET("/", form.Index)
	page.POST("/", sm.ValidateContentType, sm.LimitBody, sm.RateLimitByIP, form.Submit)

	if deps.enableProfiling {
		slog.Info("Enabling performance profiling endpoints")
		r.GET("/debug/pprof/*filepath", gin.WrapF(pprof.Index))
		r.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		r.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		r.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		r.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	}

	return r, nil
}

func loadFormTemplate() (*template.Template, error) {
	fsys, err := frontend.GetTemplatesFS()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to open page templates", err)
	}
	tmpl, err := frontend.LoadIndexTemplate(fsys)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load page template", err)
	}
	return tmpl, nil
}

// assess godoc
//
//	@Summary		Assess heart disease risk
//	@Description	Validates four patient measurements, runs the risk model and returns the interpreted result.
//	@Tags			assessment
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.AssessRequest	true	"Patient measurements"
//	@Success		200		{object}	analysis.Assessment
//	@Failure		400		{object}	errors.ErrorResponse
//	@Failure		429		{object}	errors.ErrorResponse
//	@Failure		500		{object}	errors.ErrorResponse
//	@Failure		503		{object}	errors.ErrorResponse
//	@Router			/api/v1/assess [post]
func (s *server) assess(c *gin.Context) {
	var req types.AssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	sex, err := analysis.ParseSex(req.Sex)
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := s.analyzer.Assess(c.Request.Context(), analysis.RawInput{
		Age:       *req.Age,
		Thalach:   *req.Thalach,
		Sex:       sex,
		ChestPain: req.ChestPain,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// bindError maps a JSON binding failure onto the form's messages
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.NewValidationError("Please fill all fields", verrs.Error())
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return apperrors.NewValidationError("Request body too large", maxBytes.Limit)
	}

	return apperrors.NewValidationError("Invalid number format", err.Error())
}

// modelInfo godoc
//
//	@Summary	Model manifest and session state
//	@Tags		model
//	@Produce	json
//	@Success	200	{object}	types.ModelInfo
//	@Router		/api/v1/model [get]
func (s *server) modelInfo(c *gin.Context) {
	m := s.analyzer.Manifest()
	st := s.status.Status()

	c.JSON(http.StatusOK, types.ModelInfo{
		Version:        m.Version,
		Artifact:       m.Artifact,
		State:          st.State,
		Error:          st.Error,
		Features:       m.Features,
		Threshold:      m.Threshold,
		ChestPainTypes: m.ChestPainTypes,
	})
}

// health godoc
//
//	@Summary	Readiness of the inference session
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/health [get]
func (s *server) health(c *gin.Context) {
	st := s.status.Status()

	resp := types.HealthResponse{
		Status:       "ok",
		ModelState:   st.State,
		ModelVersion: st.ModelVersion,
		Uptime:       time.Since(s.started).Round(time.Second).String(),
	}

	if st.State != inference.StateReady.String() {
		resp.Status = "unavailable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
