package aiconfig

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"

	"github.com/atelier-ai/atelier-ai/pkg/ai"
	"github.com/atelier-ai/atelier-ai/pkg/types"
)

// ModelConfig describes one model entry under a provider.
type ModelConfig struct {
	Type     types.ModelType `toml:"type" json:"type"`
	IsCustom bool            `toml:"is_custom,omitempty" json:"is_custom,omitempty"`
}

// ProviderConfig is the per-provider block of the providers toml file.
type ProviderConfig struct {
	URL       string                 `toml:"url" json:"url"`
	APIKey    string                 `toml:"api_key" json:"api_key"`
	MaxTokens int                    `toml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Models    map[string]ModelConfig `toml:"models,omitempty" json:"models,omitempty"`
	IsCustom  bool                   `toml:"is_custom,omitempty" json:"is_custom,omitempty"`
}

type AppConfig map[string]ProviderConfig

func defaultConfig() AppConfig {
	return AppConfig{
		ai.PROVIDER_OPENAI: {
			URL:       "https://api.openai.com/v1/",
			MaxTokens: 8192,
			Models: map[string]ModelConfig{
				"gpt-4o":      {Type: types.MODEL_TYPE_TEXT},
				"gpt-4o-mini": {Type: types.MODEL_TYPE_TEXT},
				"gpt-image-1": {Type: types.MODEL_TYPE_IMAGE},
			},
		},
		ai.PROVIDER_REPLICATE: {
			URL:       "https://api.replicate.com/v1/",
			MaxTokens: 8192,
			Models: map[string]ModelConfig{
				"imagen-4":         {Type: types.MODEL_TYPE_IMAGE},
				"recraft-v3":       {Type: types.MODEL_TYPE_IMAGE},
				"flux-kontext-pro": {Type: types.MODEL_TYPE_IMAGE},
				"flux-kontext-max": {Type: types.MODEL_TYPE_IMAGE},
			},
		},
		ai.PROVIDER_VOLCES: {
			URL:       "https://open.volcengineapi.com/",
			MaxTokens: 8192,
			Models: map[string]ModelConfig{
				"doubao-seedream-3":    {Type: types.MODEL_TYPE_IMAGE},
				"seedance-v1-pro":      {Type: types.MODEL_TYPE_VIDEO},
				"seedance-v1-lite-t2v": {Type: types.MODEL_TYPE_VIDEO},
				"seedance-v1-lite-i2v": {Type: types.MODEL_TYPE_VIDEO},
			},
		},
		ai.PROVIDER_COMFYUI: {
			URL:    "http://127.0.0.1:8188",
			Models: map[string]ModelConfig{},
		},
		ai.PROVIDER_OLLAMA: {
			URL:       "http://localhost:11434",
			MaxTokens: 8192,
			Models:    map[string]ModelConfig{},
		},
	}
}

// envAPIKeys maps providers to the environment variables that can seed
// their api key when the config file leaves it empty.
var envAPIKeys = map[string]string{
	ai.PROVIDER_OPENAI:    "OPENAI_API_KEY",
	ai.PROVIDER_REPLICATE: "REPLICATE_API_KEY",
	ai.PROVIDER_VOLCES:    "VOLCES_API_KEY",
}

// Service owns the provider configuration file. Reads return copies,
// updates rewrite the file and swap the in-memory config atomically.
type Service struct {
	mu       sync.RWMutex
	path     string
	config   AppConfig
	onChange []func(AppConfig)
}

func NewService(path string) *Service {
	return &Service{
		path:   path,
		config: defaultConfig(),
	}
}

// OnChange registers a callback invoked after every successful Update.
// Must be called before Load.
func (s *Service) OnChange(fn func(AppConfig)) {
	s.onChange = append(s.onChange, fn)
}

// Load reads the providers file, layering it over the built-in defaults.
// A missing file is created with the defaults. Non-text models cannot be
// added through the file, only the built-in image and video models are
// kept.
func (s *Service) Load() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	merged := defaultConfig()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		slog.Info("providers config not found, writing defaults", slog.String("path", s.path))
		if err := writeFile(s.path, merged); err != nil {
			return err
		}
	} else {
		var fromFile AppConfig
		if _, err := toml.DecodeFile(s.path, &fromFile); err != nil {
			return err
		}
		defaults := defaultConfig()
		for name, pc := range fromFile {
			base, known := defaults[name]
			if !known {
				pc.IsCustom = true
				if pc.Models == nil {
					pc.Models = map[string]ModelConfig{}
				}
				merged[name] = pc
				continue
			}
			models := base.Models
			for modelName, mc := range pc.Models {
				if mc.Type == types.MODEL_TYPE_TEXT {
					if _, exists := models[modelName]; !exists {
						mc.IsCustom = true
						models[modelName] = mc
					}
				}
			}
			pc.Models = models
			pc.IsCustom = false
			merged[name] = pc
		}
	}

	for provider, envKey := range envAPIKeys {
		pc, ok := merged[provider]
		if !ok || strings.TrimSpace(pc.APIKey) != "" {
			continue
		}
		if v := os.Getenv(envKey); v != "" {
			pc.APIKey = v
			merged[provider] = pc
			slog.Info("provider api key loaded from environment", slog.String("provider", provider))
		}
	}

	s.mu.Lock()
	s.config = merged
	s.mu.Unlock()
	return nil
}

// Get returns a deep copy of the current configuration.
func (s *Service) Get() AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.clone()
}

// GetMasked returns the configuration with api keys replaced by a masked
// placeholder, safe to hand to clients.
func (s *Service) GetMasked() AppConfig {
	cfg := s.Get()
	for name, pc := range cfg {
		pc.APIKey = maskKey(pc.APIKey)
		cfg[name] = pc
	}
	return cfg
}

// Provider returns one provider's config and whether it exists.
func (s *Service) Provider(name string) (ProviderConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pc, ok := s.config[name]
	if !ok {
		return ProviderConfig{}, false
	}
	cp := pc
	cp.Models = lo.Assign(map[string]ModelConfig{}, pc.Models)
	return cp, true
}

// Update replaces the whole configuration. Masked api keys coming back
// from a client are resolved against the stored value so a read-modify-
// write cycle does not wipe keys.
func (s *Service) Update(next AppConfig) error {
	s.mu.Lock()
	for name, pc := range next {
		if prev, ok := s.config[name]; ok && isMasked(pc.APIKey) {
			pc.APIKey = prev.APIKey
			next[name] = pc
		}
	}
	if err := writeFile(s.path, persistable(next)); err != nil {
		s.mu.Unlock()
		return err
	}
	s.config = next.clone()
	callbacks := s.onChange
	snapshot := s.config.clone()
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(snapshot)
	}
	return nil
}

// Exists reports whether the providers file is present on disk.
func (s *Service) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// persistable strips built-in models so the file only carries user
// supplied state: keys, urls and custom models.
func persistable(cfg AppConfig) AppConfig {
	out := AppConfig{}
	for name, pc := range cfg {
		if strings.TrimSpace(pc.APIKey) == "" && !pc.IsCustom && pc.URL == defaultURL(name) {
			continue
		}
		save := ProviderConfig{
			URL:       pc.URL,
			APIKey:    pc.APIKey,
			MaxTokens: pc.MaxTokens,
			IsCustom:  pc.IsCustom,
		}
		custom := map[string]ModelConfig{}
		for modelName, mc := range pc.Models {
			if mc.IsCustom {
				custom[modelName] = mc
			}
		}
		if len(custom) > 0 {
			save.Models = custom
		}
		out[name] = save
	}
	return out
}

func defaultURL(provider string) string {
	pc, ok := defaultConfig()[provider]
	if !ok {
		return ""
	}
	return pc.URL
}

func writeFile(path string, cfg AppConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func (c AppConfig) clone() AppConfig {
	out := AppConfig{}
	for name, pc := range c {
		cp := pc
		cp.Models = lo.Assign(map[string]ModelConfig{}, pc.Models)
		out[name] = cp
	}
	return out
}

const maskedTail = "********"

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return maskedTail
	}
	return key[:4] + maskedTail
}

func isMasked(key string) bool {
	return strings.HasSuffix(key, maskedTail)
}
