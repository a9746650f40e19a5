package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cv-agent-go/internal/config"
	"cv-agent-go/internal/storage/models"
	"cv-agent-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("cv-agent-go/storage/mysql")

// ErrArchiveNotFound 指定会话没有归档记录
var ErrArchiveNotFound = errors.New("会话归档不存在")

// SessionArchiver 会话归档接口
type SessionArchiver interface {
	// ArchiveSession 把终态会话写入归档表，同一会话重复归档时覆盖
	ArchiveSession(ctx context.Context, state *types.WorkflowState) error

	// GetArchivedSession 读取归档记录
	GetArchivedSession(ctx context.Context, sessionID string) (*models.SessionArchive, error)

	// ListRecentArchives 按归档时间倒序列出最近的记录
	ListRecentArchives(ctx context.Context, limit int) ([]models.SessionArchive, error)
}

var _ SessionArchiver = (*MySQL)(nil)

// MySQL 提供会话归档的关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并迁移归档表
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	var logLevel gormlogger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = gormlogger.Silent
	case 2:
		logLevel = gormlogger.Error
	case 3:
		logLevel = gormlogger.Warn
	default:
		logLevel = gormlogger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := db.AutoMigrate(&models.SessionArchive{}, &models.OriginalDocument{}); err != nil {
		return nil, fmt.Errorf("迁移归档表失败: %w", err)
	}

	return &MySQL{db: db, cfg: cfg}, nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ArchiveSession 把终态会话写入归档表，同一会话重复归档时覆盖
func (m *MySQL) ArchiveSession(ctx context.Context, state *types.WorkflowState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("状态或会话ID不能为空")
	}

	ctx, span := mysqlTracer.Start(ctx, "mysql.archive_session",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.sql.table", models.SessionArchive{}.TableName()),
			attribute.String("session.id", state.SessionID),
		))
	defer span.End()

	record, err := archiveFromState(state)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = m.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			UpdateAll: true,
		}).
		Create(record).Error
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("写入会话归档失败 %s: %w", state.SessionID, err)
	}
	return nil
}

// GetArchivedSession 读取归档记录
func (m *MySQL) GetArchivedSession(ctx context.Context, sessionID string) (*models.SessionArchive, error) {
	var record models.SessionArchive
	err := m.db.WithContext(ctx).First(&record, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrArchiveNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话归档失败 %s: %w", sessionID, err)
	}
	return &record, nil
}

// ListRecentArchives 按归档时间倒序列出最近的记录
func (m *MySQL) ListRecentArchives(ctx context.Context, limit int) ([]models.SessionArchive, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []models.SessionArchive
	err := m.db.WithContext(ctx).
		Order("archived_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询会话归档失败: %w", err)
	}
	return records, nil
}

// RecordOriginalDocument 登记原始上传文档与对象存储路径的对应关系
func (m *MySQL) RecordOriginalDocument(ctx context.Context, doc *models.OriginalDocument) error {
	if doc == nil || doc.SessionID == "" {
		return fmt.Errorf("文档记录或会话ID不能为空")
	}
	if err := m.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("登记原始文档失败 %s: %w", doc.SessionID, err)
	}
	return nil
}

// archiveFromState 把工作流终态快照转换成归档行
func archiveFromState(state *types.WorkflowState) (*models.SessionArchive, error) {
	status := models.SessionStatusCompleted
	if state.HasError() {
		status = models.SessionStatusFailed
	}

	record := &models.SessionArchive{
		SessionID:          state.SessionID,
		Status:             status,
		CurrentStep:        string(state.CurrentStep),
		UploadedResume:     state.UploadedResume,
		JobDescription:     state.JobDescription,
		ImprovedCV:         state.ImprovedCV,
		FinalCV:            state.FinalCV,
		ATSComplianceScore: state.ATSComplianceScore,
		FinalATSScore:      state.FinalATSScore,
		ATSImprovement:     state.ATSImprovement,
		MatchPercentage:    state.MatchPercentage,
		ErrorMessage:       state.Error,
		SessionCreatedAt:   state.CreatedAt,
		ArchivedAt:         time.Now(),
	}

	if state.ResumeAnalysis != nil {
		record.ResumeAnalysisJSON = datatypes.JSON(state.ResumeAnalysis)
	}
	if state.JDAnalysis != nil {
		record.JDAnalysisJSON = datatypes.JSON(state.JDAnalysis)
	}
	if state.MatchAnalysis != nil {
		data, err := json.Marshal(state.MatchAnalysis)
		if err != nil {
			return nil, fmt.Errorf("序列化匹配分析失败: %w", err)
		}
		record.MatchAnalysisJSON = datatypes.JSON(data)
	}
	if len(state.ChangesMade) > 0 {
		data, err := json.Marshal(state.ChangesMade)
		if err != nil {
			return nil, fmt.Errorf("序列化修改记录失败: %w", err)
		}
		record.ChangesMadeJSON = datatypes.JSON(data)
	}
	if state.FinalAnalysis != nil {
		record.FinalAnalysisJSON = datatypes.JSON(state.FinalAnalysis)
	}

	return record, nil
}
