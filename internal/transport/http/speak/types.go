package speak

// SpeakRequest 请求体
type SpeakRequest struct {
	Text string `json:"text" example:"Oh fairest Queen, I see before me..."`
}

const (
	msgNoText     = "No text provided"
	msgFailed     = "Failed to convert text to speech"
	msgMissingKey = "Missing ELEVENLABS_API_KEY environment variable"

	headerDuration = "X-Audio-Duration-Ms"
	headerCache    = "X-Audio-Cache"
)
