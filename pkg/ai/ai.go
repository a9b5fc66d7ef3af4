package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
)

const (
	MODEL_BASE_LANGUAGE_CN = "cn"
	MODEL_BASE_LANGUAGE_EN = "en"
)

var (
	// ErrModelUnavailable the upstream model rejected the request or is unreachable.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrModelTimeout the completion did not finish within the request deadline.
	ErrModelTimeout = errors.New("model timeout")
	// ErrMissingPromptContext a prompt template variable was left unbound.
	ErrMissingPromptContext = errors.New("missing prompt context")
	// ErrPromptOverLimit the prompt exceeds the driver's token budget.
	ErrPromptOverLimit = errors.New("prompt over token limit")
)

type ModelName struct {
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
}

type Message = openai.ChatCompletionMessage

// Gateway is the single entry point the extraction pipeline uses to talk
// to a language model. Drivers live in sub packages.
type Gateway interface {
	Complete(ctx context.Context, messages []Message) (CompleteResult, error)
	EmbeddingForDocument(ctx context.Context, title string, content []string) (EmbeddingResult, error)
	Lang() string
}

type CompleteResult struct {
	Content string
	Model   string
	Usage   *openai.Usage
}

type EmbeddingResult struct {
	Data  [][]float32
	Model string
	Usage *openai.Usage
}

func NumTokens(messages []openai.ChatCompletionMessage, model string) (numTokens int, err error) {
	var tokensPerMessage, tokensPerName int
	switch model {
	case "gpt-3.5-turbo-0613",
		"gpt-3.5-turbo-16k-0613",
		"gpt-4-0314",
		"gpt-4-32k-0314",
		"gpt-4-0613",
		"gpt-4-32k-0613":
		tokensPerMessage = 3
		tokensPerName = 1
	case "gpt-3.5-turbo-0301":
		tokensPerMessage = 4 // every message follows <|start|>{role/name}\n{content}<|end|>\n
		tokensPerName = -1   // if there's a name, the role is omitted
	default:
		if strings.Contains(model, "gpt-4") {
			return NumTokens(messages, "gpt-4-0613")
		} else {
			return NumTokens(messages, "gpt-3.5-turbo-0613")
		}
	}

	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		err = fmt.Errorf("encoding for model: %v", err)
		return
	}

	for _, message := range messages {
		numTokens += tokensPerMessage
		numTokens += len(tkm.Encode(message.Content, nil, nil))
		numTokens += len(tkm.Encode(message.Role, nil, nil))
		numTokens += len(tkm.Encode(message.Name, nil, nil))
		if message.Name != "" {
			numTokens += tokensPerName
		}
	}
	numTokens += 3 // every reply is primed with <|start|>assistant<|message|>
	return numTokens, nil
}
