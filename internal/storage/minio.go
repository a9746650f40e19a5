package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"cv-agent-go/internal/config"
	"cv-agent-go/internal/constants"
	"cv-agent-go/internal/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DocumentStore 对象存储接口，保存原始上传文档和生成的终稿
type DocumentStore interface {
	// UploadOriginalDocument 上传原始简历文件，返回对象路径和内容MD5
	UploadOriginalDocument(ctx context.Context, sessionID, filename string, data []byte) (string, string, error)

	// UploadFinalCV 保存会话生成的终稿文本
	UploadFinalCV(ctx context.Context, sessionID string, text string) (string, error)

	// DownloadDocument 下载对象内容
	DownloadDocument(ctx context.Context, objectName string) ([]byte, error)

	// DeleteDocument 删除对象
	DeleteDocument(ctx context.Context, objectName string) error
}

var _ DocumentStore = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO端点不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.BucketName
	if bucket == "" {
		bucket = "cv-agent-documents"
	}

	m := &MinIO{
		client: client,
		cfg:    cfg,
		bucket: bucket,
	}

	if err := m.ensureBucketExists(context.Background(), bucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保存储桶 %s 存在失败: %w", bucket, err)
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("bucket", bucket).
		Msg("MinIO客户端初始化成功")
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(ctx context.Context, bucket, location string) error {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucket, err)
		}
		logger.Info().Str("bucket", bucket).Msg("存储桶创建成功")
	}
	return nil
}

// UploadOriginalDocument 上传原始简历文件，返回对象路径和内容MD5
func (m *MinIO) UploadOriginalDocument(ctx context.Context, sessionID, filename string, data []byte) (string, string, error) {
	if sessionID == "" {
		return "", "", fmt.Errorf("会话ID不能为空")
	}

	sum := md5.Sum(data)
	contentMD5 := hex.EncodeToString(sum[:])

	ext := strings.ToLower(filepath.Ext(filename))
	objectName := fmt.Sprintf("%s%s/original%s", constants.OriginalDocPrefix, sessionID, ext)

	_, err := m.client.PutObject(ctx, m.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentTypeForExt(ext)})
	if err != nil {
		return "", "", fmt.Errorf("上传原始文档失败 %s: %w", objectName, err)
	}

	logger.Debug().
		Str("session_id", sessionID).
		Str("object", objectName).
		Int("size", len(data)).
		Msg("原始文档已上传")
	return objectName, contentMD5, nil
}

// UploadFinalCV 保存会话生成的终稿文本
func (m *MinIO) UploadFinalCV(ctx context.Context, sessionID string, text string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("会话ID不能为空")
	}

	objectName := fmt.Sprintf("%s%s/final_cv.txt", constants.FinalCVPrefix, sessionID)
	data := []byte(text)

	_, err := m.client.PutObject(ctx, m.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return "", fmt.Errorf("上传终稿失败 %s: %w", objectName, err)
	}
	return objectName, nil
}

// DownloadDocument 下载对象内容
func (m *MinIO) DownloadDocument(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象失败 %s: %w", objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象内容失败 %s: %w", objectName, err)
	}
	return data, nil
}

// DeleteDocument 删除对象
func (m *MinIO) DeleteDocument(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象失败 %s: %w", objectName, err)
	}
	return nil
}

// contentTypeForExt 按文件扩展名返回Content-Type
func contentTypeForExt(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
