package eventbus

import "time"

// 事件类型定义
const (
	// 视觉分析
	EventVisionCompleted = "vision:completed"
	EventVisionFailed    = "vision:failed"

	// 语音合成
	EventSpeechCompleted = "speech:completed"
	EventSpeechFailed    = "speech:failed"
)

// Topics 返回所有已定义的主题
func Topics() []string {
	return []string{EventVisionCompleted, EventVisionFailed, EventSpeechCompleted, EventSpeechFailed}
}

type VisionEventData struct {
	RequestID     string        `json:"request_id"`
	Model         string        `json:"model"`
	MediaType     string        `json:"media_type,omitempty"`
	ImageBytes    int           `json:"image_bytes"`
	AnalysisChars int           `json:"analysis_chars,omitempty"`
	Duration      time.Duration `json:"duration"`
	Error         string        `json:"error,omitempty"`
}

type SpeechEventData struct {
	RequestID  string        `json:"request_id"`
	Provider   string        `json:"provider"`
	Voice      string        `json:"voice"`
	TextChars  int           `json:"text_chars"`
	AudioBytes int           `json:"audio_bytes,omitempty"`
	Cached     bool          `json:"cached,omitempty"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}
