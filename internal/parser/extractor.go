package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"cv-agent-go/internal/logger"
)

// TextExtractor 文档文本提取接口。实现方负责把一种或多种格式的
// 原始字节转换为纯文本。
type TextExtractor interface {
	// ExtractTextFromBytes 从字节数组提取文本和元数据
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error)
}

// DocumentExtractor 按文件扩展名分发到具体提取器：
// PDF 走本地解析，DOC/DOCX 走 Tika 服务，TXT 直接按 UTF-8 解码。
type DocumentExtractor struct {
	pdf  TextExtractor
	tika TextExtractor
}

// NewDocumentExtractor 创建文档提取器。tika 可以为 nil，
// 此时 DOC/DOCX 不受支持。
func NewDocumentExtractor(pdf TextExtractor, tika TextExtractor) *DocumentExtractor {
	return &DocumentExtractor{pdf: pdf, tika: tika}
}

// Parse 根据文件名后缀提取文本，随后做统一的清洗
func (d *DocumentExtractor) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(filename))

	var (
		text string
		err  error
	)

	switch ext {
	case ".pdf":
		if d.pdf == nil {
			return "", fmt.Errorf("PDF 提取器未配置")
		}
		text, _, err = d.pdf.ExtractTextFromBytes(ctx, data, filename)
	case ".docx", ".doc":
		if d.tika == nil {
			return "", fmt.Errorf("tika 提取器未配置，无法解析 %s 文件", ext)
		}
		text, _, err = d.tika.ExtractTextFromBytes(ctx, data, filename)
	case ".txt":
		text = string(data)
	default:
		return "", fmt.Errorf("不支持的文件格式: %s (支持 PDF, DOCX, DOC, TXT)", ext)
	}

	if err != nil {
		return "", fmt.Errorf("提取文档文本失败 %s: %w", filename, err)
	}

	cleaned := CleanExtractedText(text)
	logger.Debug().
		Str("filename", filename).
		Int("raw_chars", len(text)).
		Int("cleaned_chars", len(cleaned)).
		Dur("duration", time.Since(start)).
		Msg("文档文本提取完成")

	return cleaned, nil
}

// CleanExtractedText 清洗提取出的文本：去掉每行首尾空白、删除空行，
// 并把行尾连字符造成的断词与下一行合并（下一行以小写开头时）。
func CleanExtractedText(text string) string {
	if text == "" {
		return ""
	}

	rawLines := strings.Split(text, "\n")
	lines := make([]string, len(rawLines))
	for i, line := range rawLines {
		lines[i] = strings.TrimSpace(line)
	}

	cleaned := make([]string, 0, len(lines))
	skipNext := false
	for i, line := range lines {
		if skipNext {
			skipNext = false
			continue
		}
		if line == "" {
			continue
		}

		// 行尾连字符通常是排版断词
		if strings.HasSuffix(line, "-") && i < len(lines)-1 {
			next := lines[i+1]
			if next != "" && !isUpperByte(next[0]) {
				cleaned = append(cleaned, strings.TrimSuffix(line, "-")+next)
				skipNext = true
				continue
			}
		}

		cleaned = append(cleaned, line)
	}

	return strings.Join(cleaned, "\n")
}

func isUpperByte(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
