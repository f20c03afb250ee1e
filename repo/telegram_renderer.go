package repo

import (
	"context"
	"fmt"
	"strings"

	"FunnelBot/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramAPI is the part of *bot.Bot the renderer uses.
type TelegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
}

// TelegramRenderer shows funnel screens as a text message with an inline keyboard.
type TelegramRenderer struct {
	api TelegramAPI
}

func NewTelegramRenderer(api TelegramAPI) *TelegramRenderer {
	return &TelegramRenderer{api: api}
}

// SendNew posts a new funnel message and returns its ref.
func (t *TelegramRenderer) SendNew(ctx context.Context, chatID int64, r model.Render) (model.MessageRef, error) {
	msg, err := t.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        r.Text,
		ReplyMarkup: Keyboard(r.Controls),
	})
	if err != nil {
		return model.MessageRef{}, fmt.Errorf("error sending message: %w", err)
	}
	if msg == nil {
		return model.MessageRef{}, fmt.Errorf("error sending message: empty response")
	}
	return model.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}, nil
}

// EditExisting replaces the text and keyboard of ref in place. The message
// keeps its id, so the returned ref equals ref.
func (t *TelegramRenderer) EditExisting(ctx context.Context, ref model.MessageRef, r model.Render) (model.MessageRef, error) {
	_, err := t.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      ref.ChatID,
		MessageID:   ref.MessageID,
		Text:        r.Text,
		ReplyMarkup: Keyboard(r.Controls),
	})
	if err != nil && !strings.Contains(err.Error(), "message is not modified") {
		return model.MessageRef{}, fmt.Errorf("error editing message %d: %w", ref.MessageID, err)
	}
	return ref, nil
}

// Keyboard converts control rows into an inline keyboard. Link controls become
// URL buttons, everything else carries its token as callback data.
func Keyboard(rows [][]model.Control) *models.InlineKeyboardMarkup {
	kb := &models.InlineKeyboardMarkup{
		InlineKeyboard: make([][]models.InlineKeyboardButton, 0, len(rows)),
	}
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			if c.IsLink() {
				buttons = append(buttons, models.InlineKeyboardButton{Text: c.Label, URL: c.URL})
				continue
			}
			buttons = append(buttons, models.InlineKeyboardButton{Text: c.Label, CallbackData: c.Token})
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, buttons)
	}
	return kb
}
