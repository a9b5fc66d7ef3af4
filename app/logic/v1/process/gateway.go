package process

import (
	"context"

	"github.com/mindarch-ai/mindarch/app/core"
	"github.com/mindarch-ai/mindarch/pkg/ai"
)

// observedGateway wraps the model gateway with call latency and error
// counters.
type observedGateway struct {
	ai.Gateway
	metrics *core.Metrics
}

func newObservedGateway(gw ai.Gateway, metrics *core.Metrics) *observedGateway {
	return &observedGateway{Gateway: gw, metrics: metrics}
}

func (g *observedGateway) Complete(ctx context.Context, messages []ai.Message) (ai.CompleteResult, error) {
	timer := g.metrics.ModelCallTimer("complete")
	result, err := g.Gateway.Complete(ctx, messages)
	timer.ObserveDuration()
	if err != nil {
		g.metrics.ModelCallErrorInc("complete")
	}
	return result, err
}

func (g *observedGateway) EmbeddingForDocument(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	timer := g.metrics.ModelCallTimer("embedding")
	result, err := g.Gateway.EmbeddingForDocument(ctx, title, content)
	timer.ObserveDuration()
	if err != nil {
		g.metrics.ModelCallErrorInc("embedding")
	}
	return result, err
}
