package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"cv-agent-go/internal/logger"
)

// 按扩展名选择发送给 Tika 的 Content-Type
var tikaContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
}

// TikaExtractor 基于 Apache Tika 服务器的文档提取器，
// 主要负责 DOC/DOCX，也可以作为 PDF 的后备路径。
type TikaExtractor struct {
	// Tika 服务器地址，例如 http://localhost:9998
	ServerURL string
	Client    *http.Client
}

// TikaOption 配置选项函数
type TikaOption func(*TikaExtractor)

// WithTikaTimeout 配置 HTTP 客户端超时时间
func WithTikaTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaExtractor) {
		e.Client.Timeout = timeout
	}
}

// NewTikaExtractor 创建一个新的 Tika 提取器
func NewTikaExtractor(serverURL string, options ...TikaOption) *TikaExtractor {
	extractor := &TikaExtractor{
		ServerURL: serverURL,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor
}

// ExtractTextFromBytes 把字节内容发给 Tika 的 /tika 端点，取回纯文本
func (e *TikaExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error) {
	start := time.Now()

	url := fmt.Sprintf("%s/tika", e.ServerURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	contentType := tikaContentTypes[strings.ToLower(filepath.Ext(uri))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("发送请求到 Tika 服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("tika 服务器返回错误状态码: %d", resp.StatusCode)
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("读取 Tika 响应失败: %w", err)
	}
	text := string(textBytes)

	metadata := map[string]interface{}{
		"source_file_path":       uri,
		"content_type":           contentType,
		"text_length":            len(text),
		"processing_duration_ms": time.Since(start).Milliseconds(),
	}

	logger.Debug().
		Str("uri", uri).
		Int("chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Tika 文本提取完成")

	return text, metadata, nil
}

var _ TextExtractor = (*TikaExtractor)(nil)
