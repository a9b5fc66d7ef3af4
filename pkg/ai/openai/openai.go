package openai

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mindarch-ai/mindarch/pkg/ai"
)

const (
	NAME = "openai"

	// 单次请求的 token 预算, 超限请求直接拒绝而不是等上游报错
	promptTokenBudget     = 8000
	completionTokenBudget = 4096
)

type Driver struct {
	client *openai.Client
	model  ai.ModelName
	lang   string
}

func New(token, proxy string, model ai.ModelName) *Driver {
	cfg := openai.DefaultConfig(token)
	if proxy != "" {
		cfg.BaseURL = proxy
	}

	if model.ChatModel == "" {
		model.ChatModel = openai.GPT4oMini
	}
	if model.EmbeddingModel == "" {
		model.EmbeddingModel = string(openai.LargeEmbedding3)
	}

	return &Driver{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		lang:   ai.MODEL_BASE_LANGUAGE_EN,
	}
}

func (s *Driver) WithLang(lang string) *Driver {
	s.lang = lang
	return s
}

func (s *Driver) Lang() string {
	return s.lang
}

func (s *Driver) Complete(ctx context.Context, messages []ai.Message) (ai.CompleteResult, error) {
	slog.Debug("Complete", slog.String("driver", NAME), slog.String("model", s.model.ChatModel))

	var result ai.CompleteResult

	if s.MsgIsOverLimit(messages) {
		return result, ai.ErrPromptOverLimit
	}

	req := openai.ChatCompletionRequest{
		Model:       s.model.ChatModel,
		Messages:    messages,
		Temperature: 0.1,
		MaxTokens:   completionTokenBudget,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return result, convertError(err)
	}
	if len(resp.Choices) == 0 {
		return result, ai.ErrModelUnavailable
	}

	result.Content = resp.Choices[0].Message.Content
	result.Model = resp.Model
	result.Usage = &resp.Usage
	return result, nil
}

func (s *Driver) EmbeddingForDocument(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	slog.Debug("Embedding", slog.String("driver", NAME))
	queryReq := openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(s.model.EmbeddingModel),
		Dimensions: 1024,
	}

	var (
		groups   [][]string
		result   [][]float32
		batchMax = 6
	)

	for i, v := range content {
		if i%batchMax == 0 {
			groups = append(groups, []string{})
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], v)
	}

	r := ai.EmbeddingResult{
		Usage: &openai.Usage{},
	}
	for _, v := range groups {
		queryReq.Input = v
		resp, err := s.client.CreateEmbeddings(ctx, queryReq)
		if err != nil {
			return r, convertError(err)
		}
		for _, v := range resp.Data {
			result = append(result, v.Embedding)
		}

		r.Usage.CompletionTokens += resp.Usage.CompletionTokens
		r.Usage.PromptTokens += resp.Usage.PromptTokens
		r.Usage.TotalTokens += resp.Usage.TotalTokens
		r.Model = string(resp.Model)
	}

	r.Data = result

	return r, nil
}

func (s *Driver) MsgIsOverLimit(msgs []ai.Message) bool {
	tokenNum, err := ai.NumTokens(msgs, s.model.ChatModel)
	if err != nil {
		slog.Error("Failed to tik request token", slog.String("error", err.Error()), slog.String("driver", NAME), slog.String("model", s.model.ChatModel))
		// 编码表不可用时按 4 字符一个 token 粗估
		for _, m := range msgs {
			tokenNum += len([]rune(m.Content)) / 4
		}
	}

	return tokenNum > promptTokenBudget
}

// convertError folds transport level failures into the gateway error
// taxonomy so the pipeline can tell a timeout from a rejection.
func convertError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ai.ErrModelTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(ai.ErrModelTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 408 || strings.Contains(strings.ToLower(apiErr.Message), "timeout") {
			return errors.Join(ai.ErrModelTimeout, err)
		}
		return errors.Join(ai.ErrModelUnavailable, err)
	}

	return errors.Join(ai.ErrModelUnavailable, err)
}
