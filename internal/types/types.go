package types

// AssessRequest is the JSON body of POST /api/v1/assess. Pointers separate
// a missing number from zero.
type AssessRequest struct {
	Age       *float64 `json:"age" binding:"required" example:"63"`
	Thalach   *float64 `json:"thalach" binding:"required" example:"150"`
	Sex       string   `json:"sex" binding:"required" example:"male"`
	ChestPain string   `json:"chest_pain" binding:"required" example:"3 - Asymptomatic"`
}

// AssessForm is the urlencoded body posted by the HTML form. Fields stay
// text so the form can be re-rendered with what the user typed.
type AssessForm struct {
	Age       string `form:"age"`
	Thalach   string `form:"thalach"`
	Sex       string `form:"sex"`
	ChestPain string `form:"chest_pain"`
}

// ModelInfo is the body of GET /api/v1/model
type ModelInfo struct {
	Version        string   `json:"version" example:"1.0.0"`
	Artifact       string   `json:"artifact" example:"xgb_heart_model.onnx"`
	State          string   `json:"state" example:"ready"`
	Error          string   `json:"error,omitempty"`
	Features       []string `json:"features"`
	Threshold      float64  `json:"threshold" example:"0.5"`
	ChestPainTypes []string `json:"chest_pain_types"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status       string `json:"status" example:"ok"`
	ModelState   string `json:"model_state" example:"ready"`
	ModelVersion string `json:"model_version" example:"1.0.0"`
	Uptime       string `json:"uptime"`
}
