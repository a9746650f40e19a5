package router

import (
	"context"
	"errors"
	"io"

	"cv-agent-go/internal/agent"
	"cv-agent-go/internal/api/handler"
	"cv-agent-go/internal/logger"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// createSessionJSON JSON方式创建会话的请求体
type createSessionJSON struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
}

// feedbackJSON 反馈请求体
type feedbackJSON struct {
	Feedback string `json:"feedback"`
}

// RegisterRoutes 注册 API 路由。apiKey 非空时整个分组启用密钥认证。
func RegisterRoutes(h *server.Hertz, sessionHandler *handler.SessionHandler, apiKey string) {
	api := h.Group("/api/v1")

	if apiKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
				return key == apiKey, nil
			}),
		))
	}

	// 创建会话：multipart 文件上传或 JSON 文本，二者择一
	api.POST("/session", func(c context.Context, ctx *app.RequestContext) {
		req := &handler.CreateSessionRequest{}

		if fileHeader, err := ctx.FormFile("file"); err == nil {
			file, err := fileHeader.Open()
			if err != nil {
				ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开上传文件失败"})
				return
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取上传文件失败"})
				return
			}

			req.FileBytes = data
			req.Filename = fileHeader.Filename
			req.JobDescription = ctx.PostForm("job_description")
		} else {
			var body createSessionJSON
			if err := ctx.BindJSON(&body); err != nil {
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
				return
			}
			req.ResumeText = body.ResumeText
			req.JobDescription = body.JobDescription
		}

		summary, err := sessionHandler.HandleCreateSession(c, req)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, summary)
	})

	// 提交反馈并恢复流水线
	api.POST("/session/:id/feedback", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("id")

		var body feedbackJSON
		if err := ctx.BindJSON(&body); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
			return
		}

		summary, err := sessionHandler.HandleFeedback(c, sessionID, body.Feedback)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, summary)
	})

	// 会话状态
	api.GET("/session/:id", func(c context.Context, ctx *app.RequestContext) {
		summary, err := sessionHandler.HandleStatus(c, ctx.Param("id"))
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, summary)
	})

	// 完成会话的最终结果
	api.GET("/session/:id/result", func(c context.Context, ctx *app.RequestContext) {
		result, err := sessionHandler.HandleResult(c, ctx.Param("id"))
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, result)
	})

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	// LLM客户端就绪状态
	api.GET("/llm-status", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"ready": sessionHandler.ClientsReady()})
	})
}

// writeError 把业务错误映射到HTTP状态码
func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, handler.ErrInvalidResume),
		errors.Is(err, handler.ErrInvalidJobDescription):
		ctx.JSON(consts.StatusUnprocessableEntity, utils.H{"error": err.Error()})
	case errors.Is(err, agent.ErrSessionNotFound):
		ctx.JSON(consts.StatusNotFound, utils.H{"error": "会话不存在"})
	case errors.Is(err, handler.ErrSessionNotFinished):
		ctx.JSON(consts.StatusConflict, utils.H{"error": err.Error()})
	default:
		logger.Error().Err(err).Msg("请求处理失败")
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
	}
}
