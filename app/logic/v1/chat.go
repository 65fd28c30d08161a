package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	oai "github.com/sashabaranov/go-openai"

	"github.com/atelier-ai/atelier-ai/app/core"
	"github.com/atelier-ai/atelier-ai/pkg/ai"
	pkgerrs "github.com/atelier-ai/atelier-ai/pkg/errors"
	"github.com/atelier-ai/atelier-ai/pkg/i18n"
	"github.com/atelier-ai/atelier-ai/pkg/safe"
	"github.com/atelier-ai/atelier-ai/pkg/types"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

// 单次请求内模型与工具的最大往返次数，防止 function call 死循环
const maxChatRounds = 10

const sessionTitleLimit = 200

type ChatLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewChatLogic(ctx context.Context, core *core.Core) *ChatLogic {
	return &ChatLogic{
		ctx:  ctx,
		core: core,
	}
}

type ChatRequest struct {
	SessionID    string                      `json:"session_id" binding:"required"`
	CanvasID     string                      `json:"canvas_id" binding:"required"`
	Messages     []oai.ChatCompletionMessage `json:"messages" binding:"required"`
	Provider     string                      `json:"provider" binding:"required"`
	Model        string                      `json:"model" binding:"required"`
	ToolList     []string                    `json:"tool_list"`
	SystemPrompt string                      `json:"system_prompt"`
}

// HandleChat 校验后把生成任务丢进后台，结果全部走 websocket 推送。
// 同一会话同时只允许一个进行中的任务。
func (l *ChatLogic) HandleChat(req ChatRequest) error {
	aiSrv := l.core.Srv().AI()
	chatDriver, err := aiSrv.GetChat(req.Provider)
	if err != nil {
		return err
	}

	if l.core.Srv().Tower().HasStreamSignal(req.SessionID) {
		return pkgerrs.New("ChatLogic.HandleChat.busy", i18n.ERROR_SESSION_BUSY, nil).Code(http.StatusConflict)
	}

	userPrompt := latestUserPrompt(req.Messages)
	if userPrompt == "" {
		return pkgerrs.New("ChatLogic.HandleChat.prompt", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	session, err := l.core.Store().ChatSessionStore().GetChatSession(l.ctx, req.SessionID)
	if err != nil && err != sql.ErrNoRows {
		return pkgerrs.New("ChatLogic.HandleChat.ChatSessionStore.GetChatSession", i18n.ERROR_INTERNAL, err)
	}

	if session == nil {
		if err = l.core.Store().ChatSessionStore().Create(l.ctx, types.ChatSession{
			ID:       req.SessionID,
			CanvasID: req.CanvasID,
			Title:    utils.TruncateString(userPrompt, sessionTitleLimit),
			Model:    req.Model,
			Provider: req.Provider,
			Status:   types.CHAT_SESSION_STATUS_OFFICIAL,
		}); err != nil {
			return pkgerrs.New("ChatLogic.HandleChat.ChatSessionStore.Create", i18n.ERROR_INTERNAL, err)
		}
	} else {
		if session.Status == types.CHAT_SESSION_STATUS_UNOFFICIAL {
			// 占位会话迎来第一次请求，转正并以消息内容命名
			title := utils.TruncateString(userPrompt, sessionTitleLimit)
			if err = l.core.Store().ChatSessionStore().UpdateSessionTitle(l.ctx, req.SessionID, title); err != nil {
				return pkgerrs.New("ChatLogic.HandleChat.ChatSessionStore.UpdateSessionTitle", i18n.ERROR_INTERNAL, err)
			}
			if err = l.core.Store().ChatSessionStore().UpdateSessionStatus(l.ctx, req.SessionID, types.CHAT_SESSION_STATUS_OFFICIAL); err != nil {
				return pkgerrs.New("ChatLogic.HandleChat.ChatSessionStore.UpdateSessionStatus", i18n.ERROR_INTERNAL, err)
			}
			if err = l.core.Srv().Tower().PublishSessionReName(req.SessionID, title); err != nil {
				slog.Error("failed to publish session rename", slog.String("session_id", req.SessionID), slog.String("error", err.Error()))
			}
		} else if err = l.core.Store().ChatSessionStore().UpdateChatSessionLatestAccessTime(l.ctx, req.SessionID); err != nil {
			slog.Error("failed to update session access time", slog.String("session_id", req.SessionID), slog.String("error", err.Error()))
		}
		if session.Model != req.Model || session.Provider != req.Provider {
			if err = l.core.Store().ChatSessionStore().UpdateSessionModel(l.ctx, req.SessionID, req.Model, req.Provider); err != nil {
				slog.Error("failed to update session model", slog.String("session_id", req.SessionID), slog.String("error", err.Error()))
			}
		}
	}

	if err = l.core.Store().ChatMessageStore().Create(l.ctx, &types.ChatMessage{
		ID:        utils.GenUniqIDStr(),
		SessionID: req.SessionID,
		Role:      types.USER_ROLE_USER,
		Message:   userPrompt,
		Complete:  types.MESSAGE_PROGRESS_COMPLETE,
		SendTime:  time.Now().Unix(),
	}); err != nil {
		return pkgerrs.New("ChatLogic.HandleChat.ChatMessageStore.Create", i18n.ERROR_INTERNAL, err)
	}

	// 任务脱离请求上下文运行，只能被取消信号或超时终止
	taskCtx, cancel := context.WithTimeout(context.Background(), time.Minute*30)
	removeSignal := l.core.Srv().Tower().RegisterStreamSignal(req.SessionID, cancel)

	task := &chatTask{
		core:    l.core,
		chat:    chatDriver,
		req:     req,
		history: l.buildHistory(req),
	}

	go safe.Run(func() {
		defer func() {
			removeSignal()
			cancel()
			if err := l.core.Srv().Tower().PublishSessionEvent(req.SessionID, "done", types.WS_EVENT_ASSISTANT_DONE, map[string]any{
				"session_id": req.SessionID,
			}); err != nil {
				slog.Error("failed to publish done event", slog.String("session_id", req.SessionID), slog.String("error", err.Error()))
			}
		}()
		task.run(taskCtx)
	})
	return nil
}

// StopStream 广播取消信号，持有该会话任务的节点负责终止
func (l *ChatLogic) StopStream(sessionID string) error {
	if err := l.core.Srv().Tower().NewCloseChatStreamSignal(sessionID); err != nil {
		return pkgerrs.New("ChatLogic.StopStream.NewCloseChatStreamSignal", i18n.ERROR_INTERNAL, err)
	}
	return nil
}

func (l *ChatLogic) buildHistory(req ChatRequest) []oai.ChatCompletionMessage {
	history := make([]oai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		history = append(history, oai.ChatCompletionMessage{
			Role:    oai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	return append(history, req.Messages...)
}

func latestUserPrompt(messages []oai.ChatCompletionMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == oai.ChatMessageRoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// chatTask 一次对话请求的后台执行体，模型流式输出与工具执行交替推进
type chatTask struct {
	core    *core.Core
	chat    ai.Chat
	req     ChatRequest
	history []oai.ChatCompletionMessage
}

func (t *chatTask) run(ctx context.Context) {
	tools := t.toolDefinitions()

	for round := 0; round < maxChatRounds; round++ {
		assistantMsg, toolCalls, err := t.streamOnce(ctx, tools)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Error("chat round failed",
				slog.String("session_id", t.req.SessionID),
				slog.Int("round", round),
				slog.String("error", err.Error()))
			return
		}

		if len(toolCalls) == 0 {
			return
		}

		t.history = append(t.history, oai.ChatCompletionMessage{
			Role:      oai.ChatMessageRoleAssistant,
			Content:   assistantMsg,
			ToolCalls: toolCalls,
		})

		for _, call := range toolCalls {
			result := t.executeTool(ctx, call)
			if ctx.Err() != nil {
				return
			}
			t.history = append(t.history, oai.ChatCompletionMessage{
				Role:       oai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}

	slog.Warn("chat task hit round limit", slog.String("session_id", t.req.SessionID))
}

func (t *chatTask) toolDefinitions() []oai.Tool {
	defs := t.core.Srv().AI().ChatToolDefinitions()
	if len(t.req.ToolList) == 0 {
		return defs
	}
	allow := lo.SliceToMap(t.req.ToolList, func(id string) (string, struct{}) {
		return id, struct{}{}
	})
	return lo.Filter(defs, func(d oai.Tool, _ int) bool {
		_, ok := allow[d.Function.Name]
		return ok
	})
}

// streamOnce 跑一轮模型流式请求，返回本轮文本与待执行的工具调用
func (t *chatTask) streamOnce(ctx context.Context, tools []oai.Tool) (string, []oai.ToolCall, error) {
	msgID := utils.GenUniqIDStr()
	if err := t.core.Store().ChatMessageStore().Create(ctx, &types.ChatMessage{
		ID:        msgID,
		SessionID: t.req.SessionID,
		Role:      types.USER_ROLE_ASSISTANT,
		Complete:  types.MESSAGE_PROGRESS_GENERATING,
		SendTime:  time.Now().Unix(),
	}); err != nil {
		return "", nil, err
	}

	t.publish("chat", types.WS_EVENT_ASSISTANT_INIT, map[string]any{
		"message_id": msgID,
	})

	chatReq := oai.ChatCompletionRequest{
		Model:     t.req.Model,
		Messages:  t.history,
		Tools:     tools,
		MaxTokens: t.core.Srv().AI().MaxTokens(t.req.Provider),
		Stream:    true,
	}

	timer := t.core.Metrics().ChatRequestTimer(t.req.Provider)
	stream, err := t.chat.QueryStream(ctx, chatReq)
	if err != nil {
		timer.ObserveDuration()
		t.core.Metrics().ChatErrorInc(t.req.Provider)
		t.failMessage(msgID, err)
		return "", nil, err
	}
	defer stream.Close()

	var (
		content   strings.Builder
		toolCalls []oai.ToolCall
	)

	for {
		chunk, recvErr := stream.Recv()
		if recvErr != nil {
			timer.ObserveDuration()
			if errors.Is(recvErr, io.EOF) {
				break
			}
			if errors.Is(recvErr, context.Canceled) || ctx.Err() != nil {
				// 用户主动取消，保留已生成的部分
				t.rewriteMessage(msgID, content.String(), nil, types.MESSAGE_PROGRESS_CANCELED)
				return "", nil, context.Canceled
			}
			t.core.Metrics().ChatErrorInc(t.req.Provider)
			t.failMessage(msgID, recvErr)
			return "", nil, recvErr
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			content.WriteString(delta.Content)
			t.publish("chat", types.WS_EVENT_ASSISTANT_CONTINUE, map[string]any{
				"message_id": msgID,
				"message":    delta.Content,
			})
		}

		toolCalls = mergeToolCallDeltas(toolCalls, delta.ToolCalls)
	}

	if err = t.core.Store().ChatMessageStore().RewriteMessage(ctx, t.req.SessionID, msgID, content.String(), nil, types.MESSAGE_PROGRESS_COMPLETE); err != nil {
		slog.Error("failed to persist assistant message",
			slog.String("session_id", t.req.SessionID),
			slog.String("message_id", msgID),
			slog.String("error", err.Error()))
	}

	t.publish("chat", types.WS_EVENT_ASSISTANT_DONE, map[string]any{
		"message_id": msgID,
		"message":    content.String(),
	})

	return content.String(), toolCalls, nil
}

// mergeToolCallDeltas 按 index 聚合流式分片中的 function call 参数
func mergeToolCallDeltas(calls []oai.ToolCall, deltas []oai.ToolCall) []oai.ToolCall {
	for _, d := range deltas {
		if d.Index == nil {
			continue
		}
		idx := *d.Index
		for len(calls) <= idx {
			calls = append(calls, oai.ToolCall{Type: oai.ToolTypeFunction})
		}
		if d.ID != "" {
			calls[idx].ID = d.ID
		}
		if d.Function.Name != "" {
			calls[idx].Function.Name = d.Function.Name
		}
		calls[idx].Function.Arguments += d.Function.Arguments
	}
	return calls
}

// executeTool 执行一次生成工具调用，落盘产物并推送进度，
// 返回值作为 tool role 消息回填给模型
func (t *chatTask) executeTool(ctx context.Context, call oai.ToolCall) string {
	toolName := call.Function.Name
	t.publish(toolName, types.WS_EVENT_TOOL_INIT, map[string]any{
		"tool_call_id": call.ID,
		"tool":         toolName,
	})

	tool, err := t.core.Srv().AI().GetTool(toolName)
	if err != nil {
		t.publishToolFailed(call, err)
		return fmt.Sprintf("tool %s is not available", toolName)
	}

	progress := func(percent int) {
		t.publish(toolName, types.WS_EVENT_TOOL_PROGRESS, map[string]any{
			"tool_call_id": call.ID,
			"tool":         toolName,
			"percent":      percent,
		})
	}

	timer := t.core.Metrics().ToolGenerateTimer(toolName)
	assets, err := tool.Execute(ctx, json.RawMessage(call.Function.Arguments), progress)
	timer.ObserveDuration()
	if err != nil {
		t.core.Metrics().ToolErrorInc(toolName)
		t.publishToolFailed(call, err)
		t.saveToolMessage(toolName, err.Error(), nil, types.MESSAGE_PROGRESS_FAILED)
		return fmt.Sprintf("tool %s failed: %s", toolName, err.Error())
	}

	fileLogic := NewFileLogic(context.Background(), t.core)
	var attach types.ChatMessageAttach
	var saved []*UploadedFile
	for _, asset := range assets {
		var file *UploadedFile
		var saveErr error
		if asset.B64 != "" {
			file, saveErr = fileLogic.SaveB64Asset(asset.B64, asset.MimeType)
		} else {
			file, saveErr = fileLogic.DownloadAsset(asset.URL, asset.Type)
		}
		if saveErr != nil {
			slog.Error("failed to persist generated asset",
				slog.String("tool", toolName),
				slog.String("session_id", t.req.SessionID),
				slog.String("error", saveErr.Error()))
			continue
		}
		attach = append(attach, types.ChatAttach{
			Type: asset.Type,
			URL:  file.URL,
			Tool: toolName,
		})
		saved = append(saved, file)
	}

	t.saveToolMessage(toolName, "", attach, types.MESSAGE_PROGRESS_COMPLETE)

	t.publish(toolName, types.WS_EVENT_TOOL_DONE, map[string]any{
		"tool_call_id": call.ID,
		"tool":         toolName,
		"assets":       attach,
	})

	// 画布订阅方据此把新产物挂到画布上
	if err := t.core.Srv().Tower().PublishCanvasEvent(t.req.CanvasID, "asset_generated", types.WS_EVENT_TOOL_DONE, map[string]any{
		"session_id": t.req.SessionID,
		"tool":       toolName,
		"assets":     attach,
	}); err != nil {
		slog.Error("failed to publish canvas event", slog.String("canvas_id", t.req.CanvasID), slog.String("error", err.Error()))
	}

	urls := lo.Map(saved, func(f *UploadedFile, _ int) string {
		return f.URL
	})
	return fmt.Sprintf("generated %d asset(s): %s", len(saved), strings.Join(urls, ", "))
}

func (t *chatTask) saveToolMessage(toolName, message string, attach types.ChatMessageAttach, complete types.MessageProgress) {
	if err := t.core.Store().ChatMessageStore().Create(context.Background(), &types.ChatMessage{
		ID:        utils.GenUniqIDStr(),
		SessionID: t.req.SessionID,
		Role:      types.USER_ROLE_TOOL,
		Message:   message,
		Attach:    attach,
		Complete:  complete,
		SendTime:  time.Now().Unix(),
	}); err != nil {
		slog.Error("failed to persist tool message",
			slog.String("session_id", t.req.SessionID),
			slog.String("tool", toolName),
			slog.String("error", err.Error()))
	}
}

func (t *chatTask) failMessage(msgID string, cause error) {
	if err := t.core.Store().ChatMessageStore().UpdateMessageCompleteStatus(context.Background(), t.req.SessionID, msgID, types.MESSAGE_PROGRESS_FAILED); err != nil {
		slog.Error("failed to update message status",
			slog.String("session_id", t.req.SessionID),
			slog.String("message_id", msgID),
			slog.String("error", err.Error()))
	}
	t.publish("chat", types.WS_EVENT_ASSISTANT_FAILED, map[string]any{
		"message_id": msgID,
		"error":      cause.Error(),
	})
}

func (t *chatTask) rewriteMessage(msgID, message string, attach types.ChatMessageAttach, complete types.MessageProgress) {
	if err := t.core.Store().ChatMessageStore().RewriteMessage(context.Background(), t.req.SessionID, msgID, message, attach, complete); err != nil {
		slog.Error("failed to rewrite message",
			slog.String("session_id", t.req.SessionID),
			slog.String("message_id", msgID),
			slog.String("error", err.Error()))
	}
}

func (t *chatTask) publish(subject string, event types.WsEventType, data any) {
	if err := t.core.Srv().Tower().PublishSessionEvent(t.req.SessionID, subject, event, data); err != nil {
		slog.Error("failed to publish session event",
			slog.String("session_id", t.req.SessionID),
			slog.Int("event", int(event)),
			slog.String("error", err.Error()))
	}
}

func (t *chatTask) publishToolFailed(call oai.ToolCall, cause error) {
	t.publish(call.Function.Name, types.WS_EVENT_TOOL_FAILED, map[string]any{
		"tool_call_id": call.ID,
		"tool":         call.Function.Name,
		"error":        cause.Error(),
	})
}
