package image

// DataURL 解析后的 data URL，Data 保持原始（未解码）的负载文本
type DataURL struct {
	MediaType string
	Base64    bool
	Data      string
}

// ValidationResult captures the outcome of security validation.
type ValidationResult struct {
	IsValid      bool
	Format       string
	Width        int
	Height       int
	FileSize     int64
	Error        error
	SecurityRisk string
}

// Inspection 是一次图片检查的摘要，用于日志与可选的严格校验
type Inspection struct {
	MediaType string
	// EncodedSize 为 data URL 负载部分的字符数
	EncodedSize int
	// Validation 仅在启用严格校验时填充
	Validation *ValidationResult
}
