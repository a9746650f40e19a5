package models

import (
	"time"

	"gorm.io/datatypes"
)

// SessionArchive 会话归档表。会话到达终态后从检查点快照归档一行，
// 结构化分析原样存为JSON列，供后续查询与复盘。
type SessionArchive struct {
	SessionID   string `gorm:"type:char(36);primaryKey"`
	Status      string `gorm:"type:varchar(50);not null;index:idx_session_archives_status"`
	CurrentStep string `gorm:"type:varchar(50);not null"`

	// 原始输入
	UploadedResume string `gorm:"type:mediumtext"`
	JobDescription string `gorm:"type:mediumtext"`

	// 各阶段的结构化产出
	ResumeAnalysisJSON datatypes.JSON `gorm:"type:json"`
	JDAnalysisJSON     datatypes.JSON `gorm:"type:json"`
	MatchAnalysisJSON  datatypes.JSON `gorm:"type:json"`
	ChangesMadeJSON    datatypes.JSON `gorm:"type:json"`
	FinalAnalysisJSON  datatypes.JSON `gorm:"type:json"`

	// 生成内容
	ImprovedCV string `gorm:"type:mediumtext"`
	FinalCV    string `gorm:"type:mediumtext"`

	// 派生分数
	ATSComplianceScore *int     `gorm:"type:int"`
	FinalATSScore      *int     `gorm:"type:int"`
	ATSImprovement     *int     `gorm:"type:int"`
	MatchPercentage    *float64 `gorm:"type:float"`

	// 失败会话的错误信息
	ErrorMessage string `gorm:"type:text"`

	SessionCreatedAt time.Time `gorm:"type:datetime(6)"`
	ArchivedAt       time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_session_archives_archived_at"`
}

func (SessionArchive) TableName() string {
	return "session_archives"
}

// 会话归档状态
const (
	SessionStatusCompleted = "COMPLETED"
	SessionStatusFailed    = "FAILED"
)

// OriginalDocument 原始文档登记表，记录上传文件与对象存储路径的对应关系
type OriginalDocument struct {
	DocID            uint64    `gorm:"primaryKey;autoIncrement"`
	SessionID        string    `gorm:"type:char(36);not null;index:idx_original_documents_session_id"`
	OriginalFilename string    `gorm:"type:varchar(255)"`
	ObjectPathOSS    string    `gorm:"type:varchar(1024);not null"`
	ContentMD5       string    `gorm:"type:char(32);index:idx_original_documents_content_md5"`
	FileSize         int64     `gorm:"type:bigint"`
	CreatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (OriginalDocument) TableName() string {
	return "original_documents"
}
