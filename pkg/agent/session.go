package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// SessionStarter is the part of the client the bootstrap needs.
type SessionStarter interface {
	StartSession(ctx context.Context) error
}

// BestEffortStartSession pings the session endpoint once and throws the
// outcome away. Chat works without a session, so a failure is only logged.
// It never panics and never returns an error.
func BestEffortStartSession(ctx context.Context, s SessionStarter) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("session start panicked")
		}
	}()

	if s == nil {
		log.Warn().Msg("session start skipped: no client")
		return
	}
	if err := s.StartSession(ctx); err != nil {
		log.Warn().Err(err).Msg("Session start failed")
		return
	}
	log.Debug().Msg("session started")
}
