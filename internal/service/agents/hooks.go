package agents

import (
	"context"
	"time"

	"github.com/solvine-ai/solvine/internal/model"
)

// hookTimeout bounds a single round of hook calls.
const hookTimeout = 10 * time.Second

// Hook receives agent lifecycle events after the change has been persisted.
//
// Hook methods are called asynchronously in goroutines. Implementations must not
// block indefinitely. Failures are logged and do not fail the originating request.
type Hook interface {
	OnAgentCreated(ctx context.Context, agent model.AgentRecord, upgraded bool) error
	OnAgentDeleted(ctx context.Context, agent model.AgentRecord, unshadowed bool) error
}

// AddHook registers h. It must be called before the service handles traffic.
func (s *Service) AddHook(h Hook) {
	s.hooks = append(s.hooks, h)
}

func (s *Service) fireCreated(agent model.AgentRecord, upgraded bool) {
	s.fire("OnAgentCreated", func(ctx context.Context, h Hook) error {
		return h.OnAgentCreated(ctx, agent.Clone(), upgraded)
	})
}

func (s *Service) fireDeleted(agent model.AgentRecord, unshadowed bool) {
	s.fire("OnAgentDeleted", func(ctx context.Context, h Hook) error {
		return h.OnAgentDeleted(ctx, agent.Clone(), unshadowed)
	})
}

func (s *Service) fire(event string, call func(context.Context, Hook) error) {
	if len(s.hooks) == 0 {
		return
	}
	hooks := s.hooks
	logger := s.logger
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
		defer cancel()
		for _, h := range hooks {
			if err := call(ctx, h); err != nil {
				logger.Warn("agent hook failed", "event", event, "error", err)
			}
		}
	}()
}
