package srv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	oai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/atelier-ai/atelier-ai/pkg/ai"
	"github.com/atelier-ai/atelier-ai/pkg/ai/comfyui"
	"github.com/atelier-ai/atelier-ai/pkg/ai/ollama"
	"github.com/atelier-ai/atelier-ai/pkg/ai/openai"
	"github.com/atelier-ai/atelier-ai/pkg/ai/replicate"
	"github.com/atelier-ai/atelier-ai/pkg/ai/volces"
	"github.com/atelier-ai/atelier-ai/pkg/aiconfig"
	"github.com/atelier-ai/atelier-ai/pkg/errors"
	"github.com/atelier-ai/atelier-ai/pkg/i18n"
	"github.com/atelier-ai/atelier-ai/pkg/types"
)

// toolDef 内置生成工具定义，按 provider 是否配置了 api key 决定是否启用
type toolDef struct {
	ID          string
	DisplayName string
	Provider    string
	Model       string
	Type        types.ModelType
	WithImages  bool // 支持参考图输入
}

var builtinTools = []toolDef{
	{ID: "generate_image_by_gpt_image_1_openai", DisplayName: "GPT Image 1 (OpenAI)", Provider: ai.PROVIDER_OPENAI, Model: "gpt-image-1", Type: types.MODEL_TYPE_IMAGE, WithImages: true},
	{ID: "generate_image_by_imagen_4_replicate", DisplayName: "Imagen 4", Provider: ai.PROVIDER_REPLICATE, Model: "google/imagen-4", Type: types.MODEL_TYPE_IMAGE},
	{ID: "generate_image_by_recraft_v3_replicate", DisplayName: "Recraft v3", Provider: ai.PROVIDER_REPLICATE, Model: "recraft-ai/recraft-v3", Type: types.MODEL_TYPE_IMAGE},
	{ID: "generate_image_by_flux_kontext_pro_replicate", DisplayName: "Flux Kontext Pro", Provider: ai.PROVIDER_REPLICATE, Model: "black-forest-labs/flux-kontext-pro", Type: types.MODEL_TYPE_IMAGE, WithImages: true},
	{ID: "generate_image_by_flux_kontext_max_replicate", DisplayName: "Flux Kontext Max", Provider: ai.PROVIDER_REPLICATE, Model: "black-forest-labs/flux-kontext-max", Type: types.MODEL_TYPE_IMAGE, WithImages: true},
	{ID: "generate_image_by_flux_kontext_dev_replicate", DisplayName: "Flux Dev", Provider: ai.PROVIDER_REPLICATE, Model: "black-forest-labs/flux-kontext-dev", Type: types.MODEL_TYPE_IMAGE, WithImages: true},
	{ID: "generate_image_by_ideogram_v3_turbo_replicate", DisplayName: "Ideogram V3 Turbo", Provider: ai.PROVIDER_REPLICATE, Model: "ideogram-ai/ideogram-v3-turbo", Type: types.MODEL_TYPE_IMAGE},
	{ID: "generate_image_by_seedream_3_replicate", DisplayName: "Seedream 3", Provider: ai.PROVIDER_REPLICATE, Model: "bytedance/seedream-3", Type: types.MODEL_TYPE_IMAGE},
	{ID: "generate_image_by_doubao_seedream_3_volces", DisplayName: "Doubao Seedream 3 by volces", Provider: ai.PROVIDER_VOLCES, Model: "doubao-seedream-3-0-t2i-250415", Type: types.MODEL_TYPE_IMAGE},
	{ID: "generate_video_by_seedance_v1_pro_volces", DisplayName: "Doubao Seedance v1 by volces", Provider: ai.PROVIDER_VOLCES, Model: "doubao-seedance-1-0-pro-250528", Type: types.MODEL_TYPE_VIDEO, WithImages: true},
	{ID: "generate_video_by_seedance_v1_lite_volces_t2v", DisplayName: "Doubao Seedance v1 lite(text-to-video)", Provider: ai.PROVIDER_VOLCES, Model: "doubao-seedance-1-0-lite-t2v-250428", Type: types.MODEL_TYPE_VIDEO},
	{ID: "generate_video_by_seedance_v1_lite_i2v_volces", DisplayName: "Doubao Seedance v1 lite(images-to-video)", Provider: ai.PROVIDER_VOLCES, Model: "doubao-seedance-1-0-lite-i2v-250428", Type: types.MODEL_TYPE_VIDEO, WithImages: true},
}

// ToolArgs 图像/视频工具的通用入参，由模型的 function call 填充
type ToolArgs struct {
	Prompt      string   `json:"prompt"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
	Resolution  string   `json:"resolution,omitempty"`
	Duration    int      `json:"duration,omitempty"`
	InputImages []string `json:"input_images,omitempty"`
}

type Tool struct {
	Info       types.ToolInfo
	Definition oai.Tool
	Execute    func(ctx context.Context, raw json.RawMessage, progress ai.ProgressFunc) ([]ai.GeneratedAsset, error)
}

type AIOptions struct {
	Config    aiconfig.AppConfig
	Workflows []types.ComfyWorkflow
}

type AI struct {
	cfg aiconfig.AppConfig

	chatDrivers map[string]ai.Chat
	comfy       *comfyui.Driver
	ollamaDrv   *ollama.Driver

	tools   map[string]*Tool
	toolIDs []string // 保持稳定的工具顺序
}

// SetupAI 根据 provider 配置构建模型与工具注册表。
// 只有配置了 api key 的 provider 才会注册其驱动和工具，
// comfyui 仅依赖 url，其工作流从库中读出注册为动态工具。
func SetupAI(opts AIOptions) (*AI, error) {
	a := &AI{
		cfg:         opts.Config,
		chatDrivers: make(map[string]ai.Chat),
		tools:       make(map[string]*Tool),
	}

	imageGens := make(map[string]ai.ImageGenerator)
	videoGens := make(map[string]ai.VideoGenerator)

	for name, pc := range opts.Config {
		switch name {
		case ai.PROVIDER_OPENAI:
			if pc.APIKey == "" {
				continue
			}
			drv := openai.New(pc.APIKey, "")
			a.chatDrivers[name] = drv
			imageGens[name] = drv
		case ai.PROVIDER_REPLICATE:
			if pc.APIKey == "" {
				continue
			}
			imageGens[name] = replicate.New(pc.APIKey, pc.URL)
		case ai.PROVIDER_VOLCES:
			if pc.APIKey == "" {
				continue
			}
			drv := volces.New(pc.APIKey, pc.URL)
			imageGens[name] = drv
			videoGens[name] = drv
		case ai.PROVIDER_COMFYUI:
			if pc.URL == "" {
				continue
			}
			a.comfy = comfyui.New(pc.URL)
		case ai.PROVIDER_OLLAMA:
			if pc.URL == "" {
				continue
			}
			a.ollamaDrv = ollama.New(pc.URL)
			// ollama 的 /v1 接口兼容 openai 协议，token 随意
			a.chatDrivers[name] = openai.New("ollama", strings.TrimSuffix(pc.URL, "/")+"/v1")
		default:
			// 用户自定义的 openai 协议兼容 provider
			if pc.APIKey == "" || pc.URL == "" {
				continue
			}
			a.chatDrivers[name] = openai.New(pc.APIKey, pc.URL)
		}
	}

	for _, def := range builtinTools {
		def := def
		pc, ok := opts.Config[def.Provider]
		if !ok || pc.APIKey == "" {
			continue
		}

		tool := &Tool{
			Info: types.ToolInfo{
				ID:          def.ID,
				Provider:    def.Provider,
				Type:        def.Type,
				DisplayName: def.DisplayName,
			},
			Definition: buildToolDefinition(def),
		}

		switch def.Type {
		case types.MODEL_TYPE_IMAGE:
			gen := imageGens[def.Provider]
			if gen == nil {
				continue
			}
			tool.Execute = func(ctx context.Context, raw json.RawMessage, _ ai.ProgressFunc) ([]ai.GeneratedAsset, error) {
				var args ToolArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("invalid tool arguments: %w", err)
				}
				asset, err := gen.GenerateImage(ctx, ai.GenerateImageRequest{
					Model:       def.Model,
					Prompt:      args.Prompt,
					AspectRatio: args.AspectRatio,
					InputImages: args.InputImages,
				})
				if err != nil {
					return nil, err
				}
				return []ai.GeneratedAsset{*asset}, nil
			}
		case types.MODEL_TYPE_VIDEO:
			gen := videoGens[def.Provider]
			if gen == nil {
				continue
			}
			tool.Execute = func(ctx context.Context, raw json.RawMessage, _ ai.ProgressFunc) ([]ai.GeneratedAsset, error) {
				var args ToolArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("invalid tool arguments: %w", err)
				}
				asset, err := gen.GenerateVideo(ctx, ai.GenerateVideoRequest{
					Model:       def.Model,
					Prompt:      args.Prompt,
					Resolution:  args.Resolution,
					Duration:    args.Duration,
					InputImages: args.InputImages,
				})
				if err != nil {
					return nil, err
				}
				return []ai.GeneratedAsset{*asset}, nil
			}
		default:
			continue
		}

		a.registerTool(tool)
	}

	if a.comfy != nil {
		for _, wf := range opts.Workflows {
			tool, err := a.buildWorkflowTool(wf)
			if err != nil {
				slog.Error("failed to register comfyui workflow tool",
					slog.Int64("workflow_id", wf.ID),
					slog.String("error", err.Error()))
				continue
			}
			a.registerTool(tool)
		}
	}

	sort.Strings(a.toolIDs)
	return a, nil
}

func (a *AI) registerTool(t *Tool) {
	if _, exists := a.tools[t.Info.ID]; exists {
		slog.Warn("tool already registered", slog.String("tool", t.Info.ID))
		return
	}
	a.tools[t.Info.ID] = t
	a.toolIDs = append(a.toolIDs, t.Info.ID)
}

func buildToolDefinition(def toolDef) oai.Tool {
	props := map[string]jsonschema.Definition{
		"prompt": {
			Type:        jsonschema.String,
			Description: "Required. The prompt for generation.",
		},
	}
	required := []string{"prompt"}

	if def.Type == types.MODEL_TYPE_IMAGE {
		props["aspect_ratio"] = jsonschema.Definition{
			Type:        jsonschema.String,
			Description: "Optional. Aspect ratio of the image, defaults to 1:1.",
			Enum:        []string{"1:1", "16:9", "9:16", "4:3", "3:4"},
		}
	} else {
		props["resolution"] = jsonschema.Definition{
			Type:        jsonschema.String,
			Description: "Optional. Video resolution, 480p or 720p or 1080p.",
		}
		props["duration"] = jsonschema.Definition{
			Type:        jsonschema.Integer,
			Description: "Optional. Video duration in seconds, 5 or 10.",
		}
	}

	if def.WithImages {
		props["input_images"] = jsonschema.Definition{
			Type:        jsonschema.Array,
			Description: "Optional. Reference image URLs from the canvas.",
			Items:       &jsonschema.Definition{Type: jsonschema.String},
		}
	}

	desc := fmt.Sprintf("Generate %s with %s.", def.Type, def.DisplayName)
	return oai.Tool{
		Type: oai.ToolTypeFunction,
		Function: &oai.FunctionDefinition{
			Name:        def.ID,
			Description: desc,
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: props,
				Required:   required,
			},
		},
	}
}

type workflowInput struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Description   string `json:"description"`
	Required      bool   `json:"required"`
	DefaultValue  any    `json:"default_value"`
	NodeID        string `json:"node_id"`
	NodeInputName string `json:"node_input_name"`
}

// buildWorkflowTool 将一条 comfy workflow 记录包装成可被模型调用的工具
func (a *AI) buildWorkflowTool(wf types.ComfyWorkflow) (*Tool, error) {
	var graph map[string]any
	if err := json.Unmarshal([]byte(wf.APIJson), &graph); err != nil {
		return nil, fmt.Errorf("invalid workflow api_json: %w", err)
	}

	var inputs []workflowInput
	if strings.TrimSpace(wf.Inputs) != "" {
		if err := json.Unmarshal([]byte(wf.Inputs), &inputs); err != nil {
			return nil, fmt.Errorf("invalid workflow inputs: %w", err)
		}
	}

	toolID := fmt.Sprintf("comfyui_%s", wf.Name)

	props := make(map[string]jsonschema.Definition)
	var required []string
	for _, in := range inputs {
		if in.Name == "" {
			continue
		}
		def := jsonschema.Definition{
			Type:        jsonschemaType(in.Type),
			Description: in.Description,
		}
		props[in.Name] = def
		if in.Required {
			required = append(required, in.Name)
		}
	}

	desc := wf.Description
	if desc == "" {
		desc = fmt.Sprintf("Run ComfyUI workflow %d", wf.ID)
	}

	comfy := a.comfy
	execute := func(ctx context.Context, raw json.RawMessage, progress ai.ProgressFunc) ([]ai.GeneratedAsset, error) {
		var args map[string]any
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("invalid tool arguments: %w", err)
			}
		}

		// workflow 图需要按调用填充，先拷贝一份
		var run map[string]any
		rawGraph, _ := json.Marshal(graph)
		if err := json.Unmarshal(rawGraph, &run); err != nil {
			return nil, err
		}
		applyWorkflowInputs(run, inputs, args)
		randomizeSeeds(run)

		return comfy.Execute(ctx, run, progress)
	}

	return &Tool{
		Info: types.ToolInfo{
			ID:          toolID,
			Provider:    ai.PROVIDER_COMFYUI,
			Type:        types.MODEL_TYPE_IMAGE,
			DisplayName: wf.Name,
		},
		Definition: oai.Tool{
			Type: oai.ToolTypeFunction,
			Function: &oai.FunctionDefinition{
				Name:        toolID,
				Description: desc,
				Parameters: jsonschema.Definition{
					Type:       jsonschema.Object,
					Properties: props,
					Required:   required,
				},
			},
		},
		Execute: execute,
	}, nil
}

func jsonschemaType(t string) jsonschema.DataType {
	switch t {
	case "number":
		return jsonschema.Number
	case "boolean", "bool":
		return jsonschema.Boolean
	default:
		return jsonschema.String
	}
}

// applyWorkflowInputs 将调用参数写入工作流节点输入
func applyWorkflowInputs(graph map[string]any, defs []workflowInput, args map[string]any) {
	for _, def := range defs {
		if def.Name == "" || def.NodeID == "" || def.NodeInputName == "" {
			continue
		}
		value, ok := args[def.Name]
		if !ok {
			if def.DefaultValue == nil {
				continue
			}
			value = def.DefaultValue
		}
		node, ok := graph[def.NodeID].(map[string]any)
		if !ok {
			continue
		}
		nodeInputs, ok := node["inputs"].(map[string]any)
		if !ok {
			continue
		}
		if _, exists := nodeInputs[def.NodeInputName]; exists {
			nodeInputs[def.NodeInputName] = value
		}
	}
}

// randomizeSeeds 替换所有带 seed 输入的节点，避免重复出图
func randomizeSeeds(graph map[string]any) {
	seed := time.Now().UnixNano()
	for _, raw := range graph {
		node, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		nodeInputs, ok := node["inputs"].(map[string]any)
		if !ok {
			continue
		}
		if _, exists := nodeInputs["seed"]; exists {
			seed++
			nodeInputs["seed"] = seed % (1 << 32)
		}
	}
}

// GetChat 返回会话所选 provider 的文本模型驱动
func (a *AI) GetChat(provider string) (ai.Chat, error) {
	drv, ok := a.chatDrivers[provider]
	if !ok {
		return nil, errors.New("AI.GetChat", i18n.ERROR_AI_TEXT_MODEL_NOT_FOUND, fmt.Errorf("no chat driver for provider %s", provider)).Code(404)
	}
	return drv, nil
}

func (a *AI) GetTool(id string) (*Tool, error) {
	t, ok := a.tools[id]
	if !ok {
		return nil, errors.New("AI.GetTool", i18n.ERROR_AI_TOOL_NOT_FOUND, fmt.Errorf("tool %s not registered", id)).Code(404)
	}
	return t, nil
}

// ListTools 当前可用的生成工具
func (a *AI) ListTools() []types.ToolInfo {
	return lo.Map(a.toolIDs, func(id string, _ int) types.ToolInfo {
		return a.tools[id].Info
	})
}

// ChatToolDefinitions 提供给文本模型的 function call 列表
func (a *AI) ChatToolDefinitions() []oai.Tool {
	return lo.Map(a.toolIDs, func(id string, _ int) oai.Tool {
		return a.tools[id].Definition
	})
}

// ListModels 汇总所有可用的文本模型，ollama 的模型列表实时探测
func (a *AI) ListModels(ctx context.Context) []types.ModelInfo {
	var models []types.ModelInfo

	for provider, pc := range a.cfg {
		if provider == ai.PROVIDER_OLLAMA || provider == ai.PROVIDER_COMFYUI {
			continue
		}
		if pc.APIKey == "" {
			continue
		}
		for name, mc := range pc.Models {
			if mc.Type != types.MODEL_TYPE_TEXT {
				continue
			}
			models = append(models, types.ModelInfo{
				Provider: provider,
				Model:    name,
				URL:      pc.URL,
				Type:     mc.Type,
			})
		}
	}

	if a.ollamaDrv != nil {
		probeCtx, cancel := context.WithTimeout(ctx, time.Second*3)
		defer cancel()
		names, err := a.ollamaDrv.ListModels(probeCtx)
		if err != nil {
			slog.Debug("ollama not available", slog.String("error", err.Error()))
		}
		pc := a.cfg[ai.PROVIDER_OLLAMA]
		for _, name := range names {
			models = append(models, types.ModelInfo{
				Provider: ai.PROVIDER_OLLAMA,
				Model:    name,
				URL:      pc.URL,
				Type:     types.MODEL_TYPE_TEXT,
			})
		}
	}

	sort.Slice(models, func(i, j int) bool {
		if models[i].Provider != models[j].Provider {
			return models[i].Provider < models[j].Provider
		}
		return models[i].Model < models[j].Model
	})
	return models
}

// MaxTokens 会话 provider 的上下文预算
func (a *AI) MaxTokens(provider string) int {
	pc, ok := a.cfg[provider]
	if !ok || pc.MaxTokens == 0 {
		return 8192
	}
	return pc.MaxTokens
}

// Comfy 暴露 comfyui 驱动，供工作流管理逻辑探测 server 状态
func (a *AI) Comfy() *comfyui.Driver {
	return a.comfy
}
