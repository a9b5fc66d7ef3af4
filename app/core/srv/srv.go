package srv

import (
	"github.com/mindarch-ai/mindarch/pkg/ai"
)

type ApplyFunc func(*Srv)

type Srv struct {
	ai ai.Gateway
}

func SetupSrvs(opts ...ApplyFunc) *Srv {
	a := &Srv{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (s *Srv) AI() ai.Gateway {
	return s.ai
}
