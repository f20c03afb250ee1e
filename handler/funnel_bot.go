package handler

import (
	"context"
	"strings"

	"FunnelBot/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
)

// Funnel is the engine as seen by the bot handlers.
type Funnel interface {
	Begin(ctx context.Context, userID, chatID int64) (model.Render, error)
	Advance(ctx context.Context, userID int64, token string, origin model.MessageRef) (model.Render, error)
}

// CallbackAnswerer acknowledges callback queries. *bot.Bot implements it.
type CallbackAnswerer interface {
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// FunnelBotHandler turns Telegram updates into funnel events. The engine logs
// every outcome, so rejections are not logged again here.
type FunnelBotHandler struct {
	Funnel Funnel
	logger zerolog.Logger
}

func NewFunnelBotHandler(funnel Funnel, logger zerolog.Logger) *FunnelBotHandler {
	return &FunnelBotHandler{
		Funnel: funnel,
		logger: logger,
	}
}

// StartHandler handles /start: it always opens a fresh funnel.
func (h *FunnelBotHandler) StartHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleStart(ctx, update)
}

// CallbackHandler handles inline keyboard presses.
func (h *FunnelBotHandler) CallbackHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleCallback(ctx, b, update)
}

// DefaultHandler ignores everything that is neither /start nor a button press.
func (h *FunnelBotHandler) DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message != nil && update.Message.From != nil {
		h.logger.Debug().Int64("user_id", update.Message.From.ID).Msg("ignored message")
	}
}

// IsStartCommand matches "/start", "/start@botname" and deep links such as
// "/start ref123", but not other commands that merely begin with /start.
func IsStartCommand(update *models.Update) bool {
	if update.Message == nil {
		return false
	}
	command, _, _ := strings.Cut(strings.TrimSpace(update.Message.Text), " ")
	command, _, _ = strings.Cut(command, "@")
	return command == "/start"
}

func (h *FunnelBotHandler) handleStart(ctx context.Context, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	h.logger.Debug().Int64("user_id", userID).Str("username", update.Message.From.Username).Msg("start")
	_, _ = h.Funnel.Begin(ctx, userID, chatID)
}

func (h *FunnelBotHandler) handleCallback(ctx context.Context, answerer CallbackAnswerer, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}

	// Acknowledge first so the client stops its spinner whatever happens next.
	if _, err := answerer.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
	}); err != nil {
		h.logger.Warn().Err(err).Int64("user_id", query.From.ID).Msg("error answering callback query")
	}

	_, _ = h.Funnel.Advance(ctx, query.From.ID, query.Data, originOf(query))
}

// originOf returns the message the pressed button belongs to. Messages too old
// for Telegram to return in full still carry their ids; a query with neither
// yields the zero ref, which never matches a live session.
func originOf(query *models.CallbackQuery) model.MessageRef {
	switch {
	case query.Message.Message != nil:
		return model.MessageRef{ChatID: query.Message.Message.Chat.ID, MessageID: query.Message.Message.ID}
	case query.Message.InaccessibleMessage != nil:
		return model.MessageRef{
			ChatID:    query.Message.InaccessibleMessage.Chat.ID,
			MessageID: query.Message.InaccessibleMessage.MessageID,
		}
	}
	return model.MessageRef{}
}
