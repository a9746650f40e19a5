package parser

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"cv-agent-go/internal/logger"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
)

// EinoPDFExtractor 使用 Eino PDF Parser 在进程内提取 PDF 文本，
// 不依赖外部服务。
type EinoPDFExtractor struct {
	parser  *pdf.PDFParser
	timeout time.Duration
}

// NewEinoPDFExtractor 初始化 PDF 文本提取器。
// ToPages 关闭，整个文档作为单个连续文本返回。
func NewEinoPDFExtractor(ctx context.Context) (*EinoPDFExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 PDF 解析器失败: %w", err)
	}

	return &EinoPDFExtractor{
		parser:  p,
		timeout: 30 * time.Second,
	}, nil
}

// ExtractTextFromBytes 从字节数组提取文本和元数据
func (e *EinoPDFExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(uri),
	)
	if err != nil {
		return "", nil, fmt.Errorf("PDF 解析失败 %s: %w", uri, err)
	}
	if len(docs) == 0 {
		return "", nil, fmt.Errorf("PDF 解析无结果 %s", uri)
	}

	var sb bytes.Buffer
	for i, doc := range docs {
		sb.WriteString(doc.Content)
		if i < len(docs)-1 {
			sb.WriteString("\n\n")
		}
	}
	text := sb.String()

	metadata := map[string]interface{}{
		"source_file_path":       uri,
		"document_count":         len(docs),
		"text_length":            len(text),
		"processing_duration_ms": time.Since(start).Milliseconds(),
	}
	if docs[0].MetaData != nil {
		for k, v := range docs[0].MetaData {
			metadata[k] = v
		}
	}

	logger.Debug().
		Str("uri", uri).
		Int("chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("PDF 文本提取完成")

	return text, metadata, nil
}

var _ TextExtractor = (*EinoPDFExtractor)(nil)
