package constants

import "time"

const (
	// 会话检查点在 Redis 中的键前缀与默认过期时间
	SessionCheckpointPrefix = "cvagent:session:"
	SessionCheckpointTTL    = 7 * 24 * time.Hour

	// 对象存储中的桶内路径前缀
	OriginalDocPrefix = "originals/"
	FinalCVPrefix     = "finals/"

	// 会话生命周期事件
	SessionEventsExchange      = "cvagent.session.events"
	SessionCompletedRoutingKey = "session.completed"
	SessionFailedRoutingKey    = "session.failed"
)
