package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cv-agent-go/internal/agent"
	"cv-agent-go/internal/api/handler"
	"cv-agent-go/internal/api/router"
	"cv-agent-go/internal/config"
	"cv-agent-go/internal/constants"
	"cv-agent-go/internal/llm"
	"cv-agent-go/internal/logger"
	"cv-agent-go/internal/parser"
	"cv-agent-go/internal/scorer"
	"cv-agent-go/internal/storage"
	"cv-agent-go/internal/tracing"
	"cv-agent-go/internal/workflow"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "配置文件路径，为空时在常见位置查找")
	pflag.Parse()

	// 1. 加载配置文件
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置文件失败")
	}

	// 2. 初始化日志系统
	initLogger(cfg)
	hlog.SetLogger(hertzadapter.From(logger.Logger))

	ctx := context.Background()

	// 3. 初始化链路追踪
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Warn().Err(err).Msg("初始化链路追踪失败，追踪已禁用")
		shutdownTracing = func(context.Context) error { return nil }
	}

	// 4. 初始化存储管理器
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储管理器失败")
	}
	defer storageManager.Close()

	// 5. 初始化LLM客户端。未配置API密钥时服务仍可启动，
	// 路由器会在分析步骤前终止会话。
	clients, err := llm.NewClients(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化LLM客户端失败")
	}
	if clients == nil {
		logger.Warn().Msg("未配置LLM API密钥，分析流水线不可用")
	}

	// 6. 组装流水线
	driver, store := buildDriver(cfg, clients, storageManager)

	// 7. 文档提取器
	extractor := buildExtractor(ctx, cfg)

	sessionHandler := handler.NewSessionHandler(cfg, driver, store, clients, extractor, storageManager)

	// 8. 创建HTTP服务器并注册路由
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, sessionHandler, cfg.Server.APIKey)

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()
	logger.Info().Str("address", cfg.Server.Address).Msg("服务已启动")

	// 9. 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("关闭链路追踪失败")
	}

	logger.Info().Msg("优雅退出完成")
}

// initLogger 初始化日志系统
func initLogger(cfg *config.Config) {
	logConfig := logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	}
	if logConfig.TimeFormat == "" {
		logConfig.TimeFormat = time.RFC3339
	}

	logger.Init(logConfig)

	logger.Logger = logger.Logger.With().
		Str("app", "cv-agent-go").
		Logger()
}

// buildDriver 组装检查点存储、评分器、阶段函数和事件发布器
func buildDriver(cfg *config.Config, clients *llm.Clients, storageManager *storage.Storage) (*workflow.Driver, agent.CheckpointStore) {
	// 检查点优先落Redis，未配置时退化为进程内存储
	var store agent.CheckpointStore
	if storageManager.Redis != nil {
		ttl := storageManager.Redis.SessionTTL(constants.SessionCheckpointTTL)
		redisStore, err := agent.NewRedisCheckpointStore(storageManager.Redis.Client, constants.SessionCheckpointPrefix, ttl)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Redis检查点存储失败，退化为内存存储")
		} else {
			store = redisStore
		}
	}
	if store == nil {
		store = agent.NewInMemoryCheckpointStore()
		logger.Info().Msg("使用进程内检查点存储，重启后会话不可恢复")
	}

	var sc *scorer.HybridScorer
	if clients.Ready() {
		sc = scorer.NewHybridScorer(cfg.Scorer, clients.Analyzer)
	} else {
		sc = scorer.NewHybridScorer(cfg.Scorer, nil)
	}

	opts := []workflow.DriverOption{}
	if storageManager.RabbitMQ != nil {
		publisher, err := storage.NewSessionEventPublisher(storageManager.RabbitMQ, cfg.RabbitMQ.EventsExchange)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化会话事件发布器失败")
		} else {
			opts = append(opts, workflow.WithEventPublisher(publisher))
		}
	}

	stages := workflow.NewStages(clients, sc)
	return workflow.NewDriver(stages, store, opts...), store
}

// buildExtractor 组装文档提取器。PDF走eino解析器，
// DOCX/DOC走Tika（需配置服务地址），TXT直通。
func buildExtractor(ctx context.Context, cfg *config.Config) *parser.DocumentExtractor {
	var pdfExtractor parser.TextExtractor
	if pdf, err := parser.NewEinoPDFExtractor(ctx); err != nil {
		logger.Warn().Err(err).Msg("初始化PDF提取器失败")
	} else {
		pdfExtractor = pdf
	}

	var tikaExtractor parser.TextExtractor
	if cfg.Tika.ServerURL != "" {
		tikaExtractor = parser.NewTikaExtractor(cfg.Tika.ServerURL,
			parser.WithTikaTimeout(time.Duration(cfg.Tika.Timeout)*time.Second))
	}

	return parser.NewDocumentExtractor(pdfExtractor, tikaExtractor)
}
