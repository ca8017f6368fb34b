package image

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ParseDataURL 解析 data:[<mediatype>][;base64],<data> 形式的字符串。
// 只检查结构，不解码负载。
func ParseDataURL(raw string) (DataURL, error) {
	if !strings.HasPrefix(raw, "data:") {
		return DataURL{}, fmt.Errorf("not a data url")
	}
	header, data, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return DataURL{}, fmt.Errorf("data url missing comma separator")
	}

	out := DataURL{Data: data}
	params := strings.Split(header, ";")
	out.MediaType = strings.ToLower(strings.TrimSpace(params[0]))
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			out.Base64 = true
		}
	}
	if out.MediaType == "" {
		out.MediaType = "text/plain"
	}
	return out, nil
}

// Decode 返回负载的原始字节
func (d DataURL) Decode() ([]byte, error) {
	if !d.Base64 {
		return []byte(d.Data), nil
	}
	raw, err := base64.StdEncoding.DecodeString(d.Data)
	if err != nil {
		// 部分浏览器省略填充
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(d.Data, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}

// Format 返回 image/<format> 中的格式部分，非图片类型返回空串
func (d DataURL) Format() string {
	if !strings.HasPrefix(d.MediaType, "image/") {
		return ""
	}
	return strings.TrimPrefix(d.MediaType, "image/")
}
