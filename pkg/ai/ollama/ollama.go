package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const NAME = "ollama"

// Driver talks to a local Ollama daemon. It only contributes text models
// discovered at runtime, generation stays with the cloud providers.
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
			SetTimeout(5 * time.Second),
	}
}

type tagsResponse struct {
	Models []struct {
		Name       string `json:"name"`
		ModifiedAt string `json:"modified_at"`
		Size       int64  `json:"size"`
	} `json:"models"`
}

// ListModels returns the locally installed models, or an empty list when
// the daemon is not running.
func (s *Driver) ListModels(ctx context.Context) ([]string, error) {
	var tags tagsResponse
	resp, err := s.cli.R().SetContext(ctx).SetResult(&tags).Get("/api/tags")
	if err != nil {
		return nil, fmt.Errorf("ollama not reachable at %s: %w", s.baseURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode())
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Name)
	}
	return models, nil
}
