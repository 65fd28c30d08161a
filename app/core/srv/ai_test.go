package srv

import (
	"encoding/json"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/atelier-ai/atelier-ai/pkg/ai"
	"github.com/atelier-ai/atelier-ai/pkg/aiconfig"
	"github.com/atelier-ai/atelier-ai/pkg/types"
)

func Test_SetupAIOnlyRegistersKeyedProviders(t *testing.T) {
	a, err := SetupAI(AIOptions{
		Config: aiconfig.AppConfig{
			ai.PROVIDER_REPLICATE: {APIKey: "r8_test", URL: "https://api.replicate.com/v1"},
			ai.PROVIDER_OPENAI:    {URL: "https://api.openai.com/v1"},
		},
	})
	assert.NoError(t, err)

	toolIDs := lo.Map(a.ListTools(), func(ti types.ToolInfo, _ int) string {
		return ti.ID
	})
	assert.Contains(t, toolIDs, "generate_image_by_imagen_4_replicate")
	assert.Contains(t, toolIDs, "generate_image_by_flux_kontext_pro_replicate")
	assert.NotContains(t, toolIDs, "generate_image_by_gpt_image_1_openai")
	assert.NotContains(t, toolIDs, "generate_video_by_seedance_v1_pro_volces")

	_, err = a.GetChat(ai.PROVIDER_OPENAI)
	assert.Error(t, err)

	_, err = a.GetTool("generate_image_by_recraft_v3_replicate")
	assert.NoError(t, err)
}

func Test_SetupAIRegistersWorkflowTools(t *testing.T) {
	a, err := SetupAI(AIOptions{
		Config: aiconfig.AppConfig{
			ai.PROVIDER_COMFYUI: {URL: "http://127.0.0.1:8188"},
		},
		Workflows: []types.ComfyWorkflow{
			{
				ID:      1,
				Name:    "upscale",
				APIJson: `{"1":{"class_type":"KSampler","inputs":{"seed":1}}}`,
				Inputs:  `[{"name":"prompt","type":"string","required":true,"node_id":"1","node_input_name":"text"}]`,
			},
			{
				ID:      2,
				Name:    "broken",
				APIJson: `not json`,
			},
		},
	})
	assert.NoError(t, err)

	tool, err := a.GetTool("comfyui_upscale")
	assert.NoError(t, err)
	assert.Equal(t, ai.PROVIDER_COMFYUI, tool.Info.Provider)
	assert.Equal(t, "comfyui_upscale", tool.Definition.Function.Name)

	_, err = a.GetTool("comfyui_broken")
	assert.Error(t, err)
}

func Test_ChatToolDefinitionsCarryPromptSchema(t *testing.T) {
	a, err := SetupAI(AIOptions{
		Config: aiconfig.AppConfig{
			ai.PROVIDER_VOLCES: {APIKey: "vk", URL: "https://ark.cn-beijing.volces.com/api/v3"},
		},
	})
	assert.NoError(t, err)

	defs := a.ChatToolDefinitions()
	assert.NotEmpty(t, defs)
	for _, def := range defs {
		raw, err := json.Marshal(def.Function.Parameters)
		assert.NoError(t, err)
		assert.Contains(t, string(raw), `"prompt"`)
	}
}

func Test_ApplyWorkflowInputs(t *testing.T) {
	graph := map[string]any{
		"3": map[string]any{
			"class_type": "CLIPTextEncode",
			"inputs": map[string]any{
				"text": "placeholder",
			},
		},
	}
	defs := []workflowInput{
		{Name: "prompt", NodeID: "3", NodeInputName: "text"},
		{Name: "steps", NodeID: "3", NodeInputName: "steps", DefaultValue: 20},
	}

	applyWorkflowInputs(graph, defs, map[string]any{"prompt": "a red fox"})

	inputs := graph["3"].(map[string]any)["inputs"].(map[string]any)
	assert.Equal(t, "a red fox", inputs["text"])
	// steps 输入节点上不存在，不应该被写入
	_, exists := inputs["steps"]
	assert.False(t, exists)
}

func Test_RandomizeSeeds(t *testing.T) {
	graph := map[string]any{
		"1": map[string]any{
			"inputs": map[string]any{"seed": float64(42)},
		},
		"2": map[string]any{
			"inputs": map[string]any{"text": "no seed here"},
		},
	}

	randomizeSeeds(graph)

	seed := graph["1"].(map[string]any)["inputs"].(map[string]any)["seed"]
	assert.NotEqual(t, float64(42), seed)
	assert.Equal(t, "no seed here", graph["2"].(map[string]any)["inputs"].(map[string]any)["text"])
}

func Test_MaxTokensFallback(t *testing.T) {
	a, err := SetupAI(AIOptions{
		Config: aiconfig.AppConfig{
			ai.PROVIDER_OPENAI: {APIKey: "sk-test", MaxTokens: 4096},
		},
	})
	assert.NoError(t, err)

	assert.Equal(t, 4096, a.MaxTokens(ai.PROVIDER_OPENAI))
	assert.Equal(t, 8192, a.MaxTokens(ai.PROVIDER_VOLCES))
}
