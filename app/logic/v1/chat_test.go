package v1

import (
	"testing"

	oai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int {
	return &i
}

func Test_MergeToolCallDeltas(t *testing.T) {
	var calls []oai.ToolCall

	calls = mergeToolCallDeltas(calls, []oai.ToolCall{
		{Index: intPtr(0), ID: "call_1", Function: oai.FunctionCall{Name: "generate_image_by_imagen_4_replicate", Arguments: `{"pro`}},
	})
	calls = mergeToolCallDeltas(calls, []oai.ToolCall{
		{Index: intPtr(0), Function: oai.FunctionCall{Arguments: `mpt":"a cat"}`}},
	})
	calls = mergeToolCallDeltas(calls, []oai.ToolCall{
		{Index: intPtr(1), ID: "call_2", Function: oai.FunctionCall{Name: "generate_video_by_seedance_v1_pro_volces", Arguments: `{}`}},
	})

	assert.Len(t, calls, 2)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, `{"prompt":"a cat"}`, calls[0].Function.Arguments)
	assert.Equal(t, "generate_video_by_seedance_v1_pro_volces", calls[1].Function.Name)
}

func Test_MergeToolCallDeltasIgnoresNilIndex(t *testing.T) {
	calls := mergeToolCallDeltas(nil, []oai.ToolCall{
		{ID: "call_x", Function: oai.FunctionCall{Name: "whatever"}},
	})
	assert.Empty(t, calls)
}

func Test_LatestUserPrompt(t *testing.T) {
	prompt := latestUserPrompt([]oai.ChatCompletionMessage{
		{Role: oai.ChatMessageRoleUser, Content: "draw a dog"},
		{Role: oai.ChatMessageRoleAssistant, Content: "sure"},
		{Role: oai.ChatMessageRoleUser, Content: "make it bigger"},
	})
	assert.Equal(t, "make it bigger", prompt)

	assert.Empty(t, latestUserPrompt([]oai.ChatCompletionMessage{
		{Role: oai.ChatMessageRoleAssistant, Content: "hello"},
	}))
}

func Test_BuildHistoryPrependsSystemPrompt(t *testing.T) {
	l := &ChatLogic{}
	history := l.buildHistory(ChatRequest{
		SystemPrompt: "you are a canvas assistant",
		Messages: []oai.ChatCompletionMessage{
			{Role: oai.ChatMessageRoleUser, Content: "hi"},
		},
	})

	assert.Len(t, history, 2)
	assert.Equal(t, oai.ChatMessageRoleSystem, history[0].Role)
	assert.Equal(t, oai.ChatMessageRoleUser, history[1].Role)

	history = l.buildHistory(ChatRequest{
		Messages: []oai.ChatCompletionMessage{
			{Role: oai.ChatMessageRoleUser, Content: "hi"},
		},
	})
	assert.Len(t, history, 1)
}
