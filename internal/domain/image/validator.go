package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"magic-mirror-server/internal/platform/config"
	"magic-mirror-server/internal/platform/logging"
)

// SecurityValidator 对解码后的图片字节做格式、尺寸与可疑内容检查
type SecurityValidator struct {
	config config.ImageSecurity
	logger *logging.Logger
}

func NewSecurityValidator(cfg config.ImageSecurity, logger *logging.Logger) *SecurityValidator {
	return &SecurityValidator{config: cfg, logger: logger}
}

var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"jpg":  {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
}

// 可执行文件、PDF 与压缩包的文件头
var suspiciousSignatures = [][]byte{
	{0x4D, 0x5A},
	{0x25, 0x50, 0x44, 0x46},
	{0x50, 0x4B, 0x03, 0x04},
	{0x1F, 0x8B, 0x08},
}

// ValidateBytes validates raw image bytes against the declared format.
func (v *SecurityValidator) ValidateBytes(raw []byte, declaredFormat string) ValidationResult {
	result := ValidationResult{Format: declaredFormat}

	if len(raw) == 0 {
		result.Error = fmt.Errorf("empty image payload")
		return result
	}
	if v.config.MaxFileSize > 0 && int64(len(raw)) > v.config.MaxFileSize {
		result.Error = fmt.Errorf("file size exceeds limit: %d bytes (max %d bytes)", len(raw), v.config.MaxFileSize)
		result.SecurityRisk = "file too large"
		return result
	}
	if declaredFormat != "" && !v.isFormatAllowed(declaredFormat) {
		result.Error = fmt.Errorf("unsupported format: %s", declaredFormat)
		result.SecurityRisk = "unapproved format"
		return result
	}
	for _, sig := range suspiciousSignatures {
		if bytes.HasPrefix(raw, sig) {
			v.logger.WarnTag("视觉", "检测到可疑文件头: %x", sig)
			result.Error = fmt.Errorf("potential malicious content detected")
			result.SecurityRisk = "suspicious content"
			return result
		}
	}

	cfg, actual, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		if declaredFormat != "" && !matchesSignature(raw, declaredFormat) {
			v.logger.WarnTag("视觉", "文件头与声明格式不符: declared=%s header=%x", declaredFormat, raw[:min(len(raw), 16)])
		}
		result.Error = fmt.Errorf("decode image config: %w", err)
		result.SecurityRisk = "corrupted image data"
		return result
	}
	if actual != "" {
		result.Format = actual
	}
	if !v.isFormatAllowed(result.Format) {
		result.Error = fmt.Errorf("unsupported format: %s", result.Format)
		result.SecurityRisk = "unapproved format"
		return result
	}

	if (v.config.MaxWidth > 0 && cfg.Width > v.config.MaxWidth) || (v.config.MaxHeight > 0 && cfg.Height > v.config.MaxHeight) {
		result.Error = fmt.Errorf("dimensions exceed limit: %dx%d (max %dx%d)",
			cfg.Width, cfg.Height, v.config.MaxWidth, v.config.MaxHeight)
		result.SecurityRisk = "dimensions too large"
		return result
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); v.config.MaxPixels > 0 && pixels > v.config.MaxPixels {
		result.Error = fmt.Errorf("pixel count exceeds limit: %d (max %d)", pixels, v.config.MaxPixels)
		result.SecurityRisk = "pixel count too high"
		return result
	}

	result.IsValid = true
	result.Width = cfg.Width
	result.Height = cfg.Height
	result.FileSize = int64(len(raw))
	return result
}

func (v *SecurityValidator) isFormatAllowed(format string) bool {
	if len(v.config.AllowedFormats) == 0 || format == "" {
		return true
	}
	for _, allowed := range v.config.AllowedFormats {
		if strings.EqualFold(allowed, format) {
			return true
		}
	}
	return false
}

func matchesSignature(raw []byte, format string) bool {
	sig, ok := imageSignatures[strings.ToLower(format)]
	if !ok {
		return true
	}
	return bytes.HasPrefix(raw, sig)
}
