package audio

import (
	"context"

	"github.com/rs/zerolog"
)

// RollbackStack collects reversal operations for every mutation made to
// shared OS audio state. Run drains it LIFO so cleanup always undoes in
// reverse order of registration. It is a result-collecting runner: a
// failing action is logged and the drain continues, so cleanup never
// fails outward.
type RollbackStack struct {
	actions []rollbackAction
}

type rollbackAction struct {
	label string
	fn    func(context.Context) error
}

// Push registers a reversal operation.
func (s *RollbackStack) Push(label string, fn func(context.Context) error) {
	s.actions = append(s.actions, rollbackAction{label: label, fn: fn})
}

// Len reports the number of pending actions.
func (s *RollbackStack) Len() int {
	return len(s.actions)
}

// Run pops and executes every registered action in reverse order and
// returns the labels of the actions that failed. A drained stack is a
// no-op.
func (s *RollbackStack) Run(ctx context.Context, log zerolog.Logger) []string {
	var failed []string
	for len(s.actions) > 0 {
		last := len(s.actions) - 1
		action := s.actions[last]
		s.actions = s.actions[:last]

		if err := action.fn(ctx); err != nil {
			failed = append(failed, action.label)
			log.Warn().Err(err).Str("action", action.label).Msg("Audio environment rollback failed")
		}
	}
	return failed
}
