package workflow

import (
	"context"
	"fmt"

	"cv-agent-go/internal/agent"
	"cv-agent-go/internal/logger"
	"cv-agent-go/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EventPublisher 会话生命周期事件的发布接口，由消息层实现
type EventPublisher interface {
	PublishSessionCompleted(ctx context.Context, state *types.WorkflowState) error
	PublishSessionFailed(ctx context.Context, state *types.WorkflowState) error
}

// Driver 流水线驱动器。把阶段函数和路由器接成一条单入口单出口的
// 有向图：每执行完一个阶段就合并更新、写检查点，再由路由器决定
// 下一步。同一会话严格串行，不同会话相互独立。
type Driver struct {
	stages *Stages
	store  agent.CheckpointStore
	events EventPublisher
	tracer trace.Tracer
}

// DriverOption 驱动器配置选项
type DriverOption func(*Driver)

// WithEventPublisher 配置会话完成/失败事件的发布器
func WithEventPublisher(events EventPublisher) DriverOption {
	return func(d *Driver) {
		d.events = events
	}
}

// NewDriver 创建流水线驱动器
func NewDriver(stages *Stages, store agent.CheckpointStore, opts ...DriverOption) *Driver {
	d := &Driver{
		stages: stages,
		store:  store,
		tracer: otel.Tracer("cv-agent-go/workflow"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewSession 创建一个新的会话状态并写入首个检查点
func (d *Driver) NewSession(resumeText, jobDescription string) (*types.WorkflowState, error) {
	state := types.NewWorkflowState(uuid.NewString(), resumeText, jobDescription)
	if err := d.store.Save(state); err != nil {
		return nil, fmt.Errorf("保存会话初始状态失败: %w", err)
	}
	return state, nil
}

// Run 从当前状态一直推进到终止（完成或错误），中途不暂停。
// 返回的 error 只反映检查点存储故障；阶段失败记录在状态的 Error 字段里。
func (d *Driver) Run(ctx context.Context, state *types.WorkflowState) (*types.WorkflowState, error) {
	return d.advance(ctx, state, "")
}

// RunUntilFeedback 推进到 cv_generated 后暂停，等待外部注入用户反馈。
// 暂停前的状态已写入检查点，跨进程重启后仍可恢复。
func (d *Driver) RunUntilFeedback(ctx context.Context, state *types.WorkflowState) (*types.WorkflowState, error) {
	return d.advance(ctx, state, types.StepCVGenerated)
}

// Resume 从检查点恢复会话并继续推进到终止。
// feedback 非空时作为用户反馈写入状态，由反馈阶段消费。
func (d *Driver) Resume(ctx context.Context, sessionID string, feedback string) (*types.WorkflowState, error) {
	state, err := d.store.Load(sessionID)
	if err != nil {
		return nil, fmt.Errorf("加载会话检查点失败 %s: %w", sessionID, err)
	}
	if state.IsTerminal() {
		return state, nil
	}
	if feedback != "" {
		state.UserFeedback = feedback
	}
	return d.advance(ctx, state, "")
}

// advance 驱动循环：路由、执行、合并、落盘，直到终止或到达暂停点
func (d *Driver) advance(ctx context.Context, state *types.WorkflowState, pauseAfter types.Step) (*types.WorkflowState, error) {
	for {
		next := Next(state, d.stages.ClientsReady())
		if next == types.StepEnd {
			break
		}

		update := d.runStage(ctx, next, state)
		update.Apply(state)

		if err := d.store.Save(state); err != nil {
			return state, fmt.Errorf("保存会话检查点失败 %s: %w", state.SessionID, err)
		}

		if state.HasError() {
			logger.Warn().
				Str("session_id", state.SessionID).
				Str("step", string(state.CurrentStep)).
				Str("error", state.Error).
				Msg("流水线因阶段失败而终止")
			break
		}

		logger.Info().
			Str("session_id", state.SessionID).
			Str("step", string(state.CurrentStep)).
			Msg("流水线阶段完成")

		if pauseAfter != "" && state.CurrentStep == pauseAfter {
			return state, nil
		}
	}

	d.publishTerminalEvent(ctx, state)
	return state, nil
}

// runStage 按目标步骤分发到对应的阶段函数，并为每次执行开一个追踪 span
func (d *Driver) runStage(ctx context.Context, target types.Step, state *types.WorkflowState) *types.Update {
	name := stageNameFor(target)
	ctx, span := d.tracer.Start(ctx, "workflow."+name,
		trace.WithAttributes(
			attribute.String("session.id", state.SessionID),
			attribute.String("workflow.stage", name),
		))
	defer span.End()

	var update *types.Update
	switch target {
	case types.StepResumeAnalyzed:
		update = d.stages.AnalyzeResume(ctx, state)
	case types.StepJDAnalyzed:
		update = d.stages.AnalyzeJobDescription(ctx, state)
	case types.StepMatchAnalyzed:
		update = d.stages.MatchAnalysis(ctx, state)
	case types.StepCVGenerated:
		update = d.stages.GenerateCV(ctx, state)
	case types.StepCVFinalized:
		update = d.stages.ApplyFeedback(ctx, state)
	case types.StepAnalysisComplete:
		update = d.stages.FinalAnalysis(ctx, state)
	default:
		update = types.ErrorUpdate(fmt.Sprintf("未知的目标步骤: %s", target))
	}

	if update.Err != "" {
		span.SetStatus(codes.Error, update.Err)
	}
	return update
}

// stageNameFor 目标步骤对应的阶段名称
func stageNameFor(target types.Step) string {
	switch target {
	case types.StepResumeAnalyzed:
		return "analyze_resume"
	case types.StepJDAnalyzed:
		return "analyze_jd"
	case types.StepMatchAnalyzed:
		return "match_analysis"
	case types.StepCVGenerated:
		return "generate_cv"
	case types.StepCVFinalized:
		return "apply_feedback"
	case types.StepAnalysisComplete:
		return "final_analysis"
	}
	return string(target)
}

// publishTerminalEvent 在会话到达终态时发布生命周期事件。
// 发布失败只记日志，不影响流水线结果。
func (d *Driver) publishTerminalEvent(ctx context.Context, state *types.WorkflowState) {
	if d.events == nil {
		return
	}

	var err error
	switch {
	case state.HasError():
		err = d.events.PublishSessionFailed(ctx, state)
	case state.CurrentStep == types.StepAnalysisComplete:
		err = d.events.PublishSessionCompleted(ctx, state)
	default:
		return
	}
	if err != nil {
		logger.Warn().Err(err).
			Str("session_id", state.SessionID).
			Msg("发布会话事件失败")
	}
}

// NewSessionID 生成新的会话标识
func NewSessionID() string {
	return uuid.NewString()
}
