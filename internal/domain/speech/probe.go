package speech

import (
	"bytes"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// ProbeDuration 解码 MP3 头估算播放时长，无法解码时返回 false
func ProbeDuration(data []byte) (d time.Duration, ok bool) {
	if len(data) == 0 {
		return 0, false
	}
	defer func() {
		if recover() != nil {
			d, ok = 0, false
		}
	}()

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, false
	}
	rate := decoder.SampleRate()
	// Length 为解码后 PCM 字节数 (16-bit stereo，每个采样 4 字节)
	length := decoder.Length()
	if rate <= 0 || length <= 0 {
		return 0, false
	}
	samples := length / 4
	return time.Duration(samples) * time.Second / time.Duration(rate), true
}
