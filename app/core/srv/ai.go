package srv

import (
	"fmt"
	"os"

	"github.com/mindarch-ai/mindarch/pkg/ai"
	"github.com/mindarch-ai/mindarch/pkg/ai/openai"
)

type AIConfig struct {
	// Lang 决定抽取 prompt 使用的语言, cn 或 en
	Lang   string       `toml:"lang"`
	Driver string       `toml:"driver"`
	OpenAI OpenAIConfig `toml:"openai"`
}

type OpenAIConfig struct {
	Token          string `toml:"token"`
	Endpoint       string `toml:"endpoint"`
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
}

func (c *AIConfig) FromENV() {
	c.Lang = os.Getenv("MINDARCH_AI_LANG")
	c.Driver = os.Getenv("MINDARCH_AI_DRIVER")
	c.OpenAI.Token = os.Getenv("MINDARCH_OPENAI_TOKEN")
	c.OpenAI.Endpoint = os.Getenv("MINDARCH_OPENAI_ENDPOINT")
	c.OpenAI.ChatModel = os.Getenv("MINDARCH_OPENAI_CHAT_MODEL")
	c.OpenAI.EmbeddingModel = os.Getenv("MINDARCH_OPENAI_EMBEDDING_MODEL")
}

// SetupAI builds the model gateway from static config. Unlike the chat
// products this service serves no per-tenant model selection, one
// gateway covers every job.
func SetupAI(cfg AIConfig) (ai.Gateway, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = openai.NAME
	}

	switch driver {
	case openai.NAME:
		if cfg.OpenAI.Token == "" {
			return nil, fmt.Errorf("ai.openai.token is required")
		}
		d := openai.New(cfg.OpenAI.Token, cfg.OpenAI.Endpoint, ai.ModelName{
			ChatModel:      cfg.OpenAI.ChatModel,
			EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		})
		if cfg.Lang != "" {
			d = d.WithLang(cfg.Lang)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown ai driver %q", driver)
	}
}

func ApplyAI(cfg AIConfig) ApplyFunc {
	return func(s *Srv) {
		gw, err := SetupAI(cfg)
		if err != nil {
			panic(err)
		}
		s.ai = gw
	}
}
