package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FunnelBot/model"
	"github.com/rs/zerolog"
)

// Renderer puts a funnel screen on the user's chat.
type Renderer interface {
	SendNew(ctx context.Context, chatID int64, r model.Render) (model.MessageRef, error)
	EditExisting(ctx context.Context, ref model.MessageRef, r model.Render) (model.MessageRef, error)
}

// Sessions is the session store as the engine sees it. Get and Put are only
// called from inside WithLock for the same user.
type Sessions interface {
	WithLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error
	Get(ctx context.Context, userID int64) (*model.Session, error)
	Put(ctx context.Context, userID int64, s *model.Session) error
}

// Recorder receives engine outcomes for metrics.
type Recorder interface {
	Transition(funnel, from, to string)
	Rejection(funnel, reason string)
	Render(funnel, op string, ok bool, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Transition(string, string, string)          {}
func (nopRecorder) Rejection(string, string)                   {}
func (nopRecorder) Render(string, string, bool, time.Duration) {}

// Engine drives users through one funnel.
type Engine struct {
	table    *Table
	sessions Sessions
	renderer Renderer
	logger   zerolog.Logger
	recorder Recorder
	now      func() time.Time
}

type Option func(*Engine)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithClock overrides time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(table *Table, sessions Sessions, renderer Renderer, opts ...Option) *Engine {
	e := &Engine{
		table:    table,
		sessions: sessions,
		renderer: renderer,
		logger:   zerolog.Nop(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the content the engine renders.
func (e *Engine) Table() *Table {
	return e.table
}

// Begin sends the opening screen as a new message and starts a fresh session
// on it, replacing whatever session the user had.
func (e *Engine) Begin(ctx context.Context, userID, chatID int64) (model.Render, error) {
	out := e.table.Opening()
	err := e.sessions.WithLock(ctx, userID, func(ctx context.Context) error {
		ref, err := e.render("send", func() (model.MessageRef, error) {
			return e.renderer.SendNew(ctx, chatID, out)
		})
		if err != nil {
			return err
		}
		if err := e.sessions.Put(ctx, userID, model.NewSession(ref, e.now())); err != nil {
			return fmt.Errorf("error saving session: %w", err)
		}
		return nil
	})

	log := e.logger.With().Int64("user_id", userID).Int64("chat_id", chatID).Logger()
	if err != nil {
		e.fail(log, err)
		return model.Render{}, err
	}
	e.recorder.Transition(e.table.Name(), "start", model.Question(0).String())
	log.Info().Msg("funnel started")
	return out, nil
}

// Advance applies a callback token that was pressed on origin. Any rejection
// leaves the session exactly as it was.
func (e *Engine) Advance(ctx context.Context, userID int64, token string, origin model.MessageRef) (model.Render, error) {
	var (
		out      model.Render
		from, to model.Stage
		choice   string
		loaded   bool
	)
	err := e.sessions.WithLock(ctx, userID, func(ctx context.Context) error {
		current, err := e.sessions.Get(ctx, userID)
		if errors.Is(err, model.ErrSessionNotFound) {
			return model.ErrNoSession
		}
		if err != nil {
			return fmt.Errorf("error loading session: %w", err)
		}
		from, loaded = current.Stage, true

		if origin != current.ActiveMessage {
			return fmt.Errorf("%w: pressed on %d, active is %d",
				model.ErrStaleAction, origin.MessageID, current.ActiveMessage.MessageID)
		}

		action, err := e.table.ParseAction(token)
		if err != nil {
			return err
		}

		next := current.Clone()
		switch a := action.(type) {
		case model.RestartAction:
			if current.Stage != model.Rejected {
				return fmt.Errorf("%w: restart outside the rejected screen", model.ErrOutOfStage)
			}
			out = e.table.Opening()
			next.Stage = model.Question(0)
			next.Answers = map[string]string{}
			next.StartedAt = e.now()

		case model.ChoiceAction:
			expected, ok := e.table.StageForTag(a.StageTag)
			if !ok || expected != current.Stage {
				return fmt.Errorf("%w: token for %q, session at %s", model.ErrOutOfStage, a.StageTag, current.Stage)
			}
			fragment, ok := e.table.ResponseFragment(expected, a.Choice)
			if !ok {
				return fmt.Errorf("%w: %q on %s", model.ErrUnknownChoice, a.Choice, expected)
			}
			successor := e.table.Next(expected)
			out = model.Render{
				Text:     fragment + e.table.PromptText(successor),
				Controls: e.table.ControlSet(successor),
			}
			if expected.IsQuestion() {
				next.Answers[a.StageTag] = a.Choice
			}
			next.Stage = successor
			choice = a.Choice

		default:
			return fmt.Errorf("%w: unhandled action %T", model.ErrUnknownChoice, action)
		}

		ref, err := e.render("edit", func() (model.MessageRef, error) {
			return e.renderer.EditExisting(ctx, origin, out)
		})
		if err != nil {
			return err
		}

		next.ActiveMessage = ref
		next.UpdatedAt = e.now()
		if err := e.sessions.Put(ctx, userID, next); err != nil {
			return fmt.Errorf("error saving session: %w", err)
		}
		to = next.Stage
		return nil
	})

	log := e.logger.With().Int64("user_id", userID).Str("token", token).Logger()
	if err != nil {
		if loaded {
			log = log.With().Str("stage", from.String()).Logger()
		}
		e.fail(log, err)
		return model.Render{}, err
	}
	e.recorder.Transition(e.table.Name(), from.String(), to.String())
	log.Info().Str("from", from.String()).Str("to", to.String()).Str("choice", choice).Msg("funnel advanced")
	return out, nil
}

func (e *Engine) render(op string, fn func() (model.MessageRef, error)) (model.MessageRef, error) {
	start := e.now()
	ref, err := fn()
	e.recorder.Render(e.table.Name(), op, err == nil, e.now().Sub(start))
	if err != nil {
		return model.MessageRef{}, fmt.Errorf("%w: %w", model.ErrRenderFailure, err)
	}
	return ref, nil
}

func (e *Engine) fail(log zerolog.Logger, err error) {
	reason := Reason(err)
	e.recorder.Rejection(e.table.Name(), reason)
	if model.IsRejection(err) {
		log.Info().Str("reason", reason).Err(err).Msg("action rejected")
		return
	}
	log.Error().Str("reason", reason).Err(err).Msg("funnel operation failed")
}

// Reason gives a short label for an engine error.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrNoSession):
		return "no_session"
	case errors.Is(err, model.ErrStaleAction):
		return "stale_action"
	case errors.Is(err, model.ErrOutOfStage):
		return "out_of_stage"
	case errors.Is(err, model.ErrUnknownChoice):
		return "unknown_choice"
	case errors.Is(err, model.ErrRenderFailure):
		return "render_failure"
	}
	return "internal"
}
