package analyze

// AnalyzeRequest 请求体，image 为 data URL
type AnalyzeRequest struct {
	Image string `json:"image" example:"data:image/jpeg;base64,/9j/4AAQ..."`
}

// AnalyzeResponse 成功响应
type AnalyzeResponse struct {
	Analysis string `json:"analysis" example:"Oh fairest Queen, I see before me..."`
}

const (
	msgNoImage = "No image provided"
	msgFailed  = "Failed to analyze image"
)
