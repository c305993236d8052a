package frontend

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/heartrisk/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/heartrisk/internal/errors"
	"github.com/ZanzyTHEbar/heartrisk/internal/security"
	"github.com/ZanzyTHEbar/heartrisk/internal/types"
)

// Assessor runs one assessment
type Assessor interface {
	Assess(ctx context.Context, in analysis.RawInput) (analysis.Assessment, error)
}

// FormHandler serves the HTML entry form and renders results in place
type FormHandler struct {
	tmpl           *template.Template
	assessor       Assessor
	chestPainTypes []string
	modelState     func() string
}

// NewFormHandler creates a form handler. modelState reports the inference
// session state shown above the form.
func NewFormHandler(tmpl *template.Template, assessor Assessor, chestPainTypes []string, modelState func() string) *FormHandler {
	return &FormHandler{
		tmpl:           tmpl,
		assessor:       assessor,
		chestPainTypes: chestPainTypes,
		modelState:     modelState,
	}
}

func (h *FormHandler) page(c *gin.Context) PageData {
	state := "ready"
	if h.modelState != nil {
		state = h.modelState()
	}
	return PageData{
		Nonce:          security.GetNonce(c),
		ModelState:     state,
		ChestPainTypes: h.chestPainTypes,
	}
}

// Index renders the empty form
func (h *FormHandler) Index(c *gin.Context) {
	h.render(c, http.StatusOK, h.page(c))
}

// Submit validates the posted fields, runs the assessment and renders the
// result, or the error message, under the form.
func (h *FormHandler) Submit(c *gin.Context) {
	data := h.page(c)

	var form types.AssessForm
	if err := c.ShouldBind(&form); err != nil {
		data.Error = "Please fill all fields"
		h.render(c, http.StatusBadRequest, data)
		return
	}
	data.Form = form

	in, err := analysis.ParseForm(form.Age, form.Thalach, form.Sex, form.ChestPain)
	if err != nil {
		h.renderError(c, data, err)
		return
	}

	result, err := h.assessor.Assess(c.Request.Context(), in)
	if err != nil {
		h.renderError(c, data, err)
		return
	}

	data.WithResult(result)
	h.render(c, http.StatusOK, data)
}

func (h *FormHandler) renderError(c *gin.Context, data PageData, err error) {
	appErr := apperrors.ToAppError(err)
	appErr.RequestID = c.GetString("request_id")
	apperrors.LogError(c, appErr)

	switch appErr.Category {
	case apperrors.CategoryValidation, apperrors.CategoryFormat:
		data.Error = appErr.Message()
	case apperrors.CategoryIllegalState:
		data.Error = "Prediction failed: model not loaded"
	default:
		data.Error = "Prediction failed"
	}
	h.render(c, appErr.HTTPStatus, data)
}

func (h *FormHandler) render(c *gin.Context, status int, data PageData) {
	if err := RenderPage(c, h.tmpl, status, data); err != nil {
		slog.Error("Failed to render form page", "error", err, "path", c.Request.URL.Path)
		_ = c.Error(apperrors.NewInternalError("failed to render page", err))
	}
}
