package image

import (
	"context"
	"fmt"
	"strings"

	"magic-mirror-server/internal/platform/config"
	"magic-mirror-server/internal/platform/errors"
	"magic-mirror-server/internal/platform/logging"
)

// Inspector 在转发前检查客户端提交的图片 data URL。
// 默认只做宽松解析；Security.Enabled 时才解码并校验图片。
type Inspector struct {
	validator *SecurityValidator
	logger    *logging.Logger
	security  config.ImageSecurity
}

func NewInspector(security config.ImageSecurity, logger *logging.Logger) *Inspector {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Inspector{
		validator: NewSecurityValidator(security, logger),
		logger:    logger,
		security:  security,
	}
}

// Inspect 宽松模式下无法解析的字符串也会放行，交由上游判断。
func (p *Inspector) Inspect(_ context.Context, raw string) (*Inspection, error) {
	if raw == "" {
		return nil, errors.New(errors.KindInput, "image.inspect", "image is empty")
	}

	parsed, err := ParseDataURL(raw)
	if err != nil {
		if p.security.Enabled {
			return nil, errors.Wrap(errors.KindInput, "image.inspect", "invalid data url", err)
		}
		return &Inspection{MediaType: "unknown", EncodedSize: len(raw)}, nil
	}

	insp := &Inspection{MediaType: parsed.MediaType, EncodedSize: len(parsed.Data)}
	if !p.security.Enabled {
		return insp, nil
	}

	if limit := p.security.MaxFileSize; limit > 0 && estimatedSize(parsed) > limit {
		return nil, errors.New(errors.KindInput, "image.inspect",
			fmt.Sprintf("image exceeds max file size of %d bytes", limit))
	}

	decoded, err := parsed.Decode()
	if err != nil {
		return nil, errors.Wrap(errors.KindInput, "image.inspect", "invalid image payload", err)
	}
	result := p.validator.ValidateBytes(decoded, parsed.Format())
	insp.Validation = &result
	if !result.IsValid {
		p.logger.WarnTag("视觉", "图片校验失败: %v (%s)", result.Error, result.SecurityRisk)
		return nil, errors.Wrap(errors.KindInput, "image.inspect", "image validation failed", result.Error)
	}
	p.logger.DebugTag("视觉", "图片校验通过: format=%s %dx%d size=%d",
		result.Format, result.Width, result.Height, result.FileSize)
	return insp, nil
}

// estimatedSize 估算解码后的字节数，避免解码超大负载
func estimatedSize(d DataURL) int64 {
	if !d.Base64 {
		return int64(len(d.Data))
	}
	n := len(strings.TrimRight(d.Data, "="))
	return int64(n) * 3 / 4
}
