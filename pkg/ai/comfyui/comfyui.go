package comfyui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"

	"github.com/atelier-ai/atelier-ai/pkg/ai"
	"github.com/atelier-ai/atelier-ai/pkg/utils"
)

const NAME = "comfyui"

// Driver queues workflows on a ComfyUI server and follows the execution
// over its websocket until all outputs are collected.
type Driver struct {
	baseURL string
	cli     *resty.Client
}

func New(baseURL string) *Driver {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Driver{
		baseURL: baseURL,
		cli: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(30 * time.Second),
	}
}

// Ping reports whether the ComfyUI server answers on its prompt endpoint.
func (s *Driver) Ping(ctx context.Context) error {
	resp, err := s.cli.R().SetContext(ctx).Get("/api/prompt")
	if err != nil {
		return fmt.Errorf("comfyui not reachable at %s: %w", s.baseURL, err)
	}
	if resp.IsError() {
		return fmt.Errorf("comfyui returned status %d", resp.StatusCode())
	}
	return nil
}

type queueResponse struct {
	PromptID   string         `json:"prompt_id"`
	NodeErrors map[string]any `json:"node_errors"`
}

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Execute runs one workflow (ComfyUI api_json graph) to completion and
// returns the produced assets. progress may be nil.
func (s *Driver) Execute(ctx context.Context, workflow map[string]any, progress ai.ProgressFunc) ([]ai.GeneratedAsset, error) {
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}

	clientID := utils.GenRandomID()

	conn, err := s.dialWS(ctx, clientID)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var queued queueResponse
	resp, err := s.cli.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"prompt":    workflow,
			"client_id": clientID,
		}).
		SetResult(&queued).
		Post("/prompt")
	if err != nil {
		return nil, fmt.Errorf("comfyui queue failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("comfyui queue failed: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(queued.NodeErrors) > 0 {
		return nil, fmt.Errorf("comfyui rejected workflow: %v", queued.NodeErrors)
	}

	return s.watch(ctx, conn, queued.PromptID, progress)
}

func (s *Driver) dialWS(ctx context.Context, clientID string) (*websocket.Conn, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = "clientId=" + clientID

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("comfyui websocket dial failed: %w", err)
	}
	return conn, nil
}

func (s *Driver) watch(ctx context.Context, conn *websocket.Conn, promptID string, progress ai.ProgressFunc) ([]ai.GeneratedAsset, error) {
	var outputs []ai.GeneratedAsset

	for {
		if deadline, ok := ctx.Deadline(); ok {
			conn.SetReadDeadline(deadline)
		}

		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("comfyui websocket read failed: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue // preview image frames arrive as binary
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Warn("unparsable comfyui event", slog.String("driver", NAME), slog.String("raw", string(raw)))
			continue
		}

		switch msg.Type {
		case "progress":
			var data struct {
				Value int `json:"value"`
				Max   int `json:"max"`
			}
			if err := json.Unmarshal(msg.Data, &data); err == nil && data.Max > 0 && progress != nil {
				progress(data.Value * 100 / data.Max)
			}
		case "executed":
			var data struct {
				PromptID string `json:"prompt_id"`
				Output   struct {
					Images []outputFile `json:"images"`
					Videos []outputFile `json:"videos"`
				} `json:"output"`
			}
			if err := json.Unmarshal(msg.Data, &data); err != nil || data.PromptID != promptID {
				continue
			}
			for _, img := range data.Output.Images {
				outputs = append(outputs, ai.GeneratedAsset{Type: "image", URL: s.viewURL(img)})
			}
			for _, vid := range data.Output.Videos {
				outputs = append(outputs, ai.GeneratedAsset{Type: "video", URL: s.viewURL(vid)})
			}
		case "executing":
			var data struct {
				PromptID string  `json:"prompt_id"`
				Node     *string `json:"node"`
			}
			if err := json.Unmarshal(msg.Data, &data); err == nil && data.PromptID == promptID && data.Node == nil {
				// node == null means the whole prompt finished
				return outputs, nil
			}
		case "execution_error":
			var data struct {
				PromptID         string `json:"prompt_id"`
				ExceptionMessage string `json:"exception_message"`
			}
			if err := json.Unmarshal(msg.Data, &data); err == nil && data.PromptID == promptID {
				return nil, fmt.Errorf("comfyui execution error: %s", data.ExceptionMessage)
			}
		}
	}
}

type outputFile struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

func (s *Driver) viewURL(f outputFile) string {
	v := url.Values{}
	v.Set("filename", f.Filename)
	v.Set("subfolder", f.Subfolder)
	v.Set("type", f.Type)
	return s.baseURL + "/view?" + v.Encode()
}

// ListCheckpoints fetches available checkpoint models from the server's
// object_info endpoint.
func (s *Driver) ListCheckpoints(ctx context.Context) ([]string, error) {
	var objectInfo map[string]struct {
		Input struct {
			Required map[string][]json.RawMessage `json:"required"`
		} `json:"input"`
	}

	resp, err := s.cli.R().SetContext(ctx).SetResult(&objectInfo).Get("/api/object_info")
	if err != nil {
		return nil, fmt.Errorf("comfyui object_info failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("comfyui object_info failed: status %d", resp.StatusCode())
	}

	loader, ok := objectInfo["CheckpointLoaderSimple"]
	if !ok {
		return nil, nil
	}
	ckpt, ok := loader.Input.Required["ckpt_name"]
	if !ok || len(ckpt) == 0 {
		return nil, nil
	}

	var models []string
	if err := json.Unmarshal(ckpt[0], &models); err != nil {
		return nil, nil
	}
	return models, nil
}
