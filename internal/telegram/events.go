// internal/telegram/events.go

package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/weekender/weekender-bot/internal/recommend"
	"github.com/weekender/weekender-bot/internal/session"
)

func (b *Bot) onEventsMenu(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	reply := htmlMessage(msg.Chat.ID, textEventsMenu)
	reply.ReplyMarkup = eventsKeyboard(b.config.AssistantURL)
	b.send(reply)
	return nil
}

func (b *Bot) onRepeatEvents(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	return b.showEvents(ctx, msg.Chat.ID, msg.From.ID)
}

// showEvents sends the next page of events, or explains why there is none
func (b *Bot) showEvents(ctx context.Context, chatID, tgID int64) error {
	batch, err := b.svc.Recommend.NextEvents(ctx, tgID, b.config.EventsPageSize)
	if err != nil {
		if errors.Is(err, recommend.ErrMissingRequiredAttribute) || errors.Is(err, recommend.ErrSubjectNotFound) {
			b.send(htmlMessage(chatID, textNeedProfile))
			return nil
		}
		return fmt.Errorf("next events for %d: %w", tgID, err)
	}

	if len(batch.Candidates) == 0 {
		if batch.Exhausted {
			// everything was shown; the repeat button starts over
			if err := b.svc.Recommend.Reset(ctx, tgID, recommend.PoolEvents); err != nil {
				return err
			}
			reply := htmlMessage(chatID, textEventsSeenAll)
			reply.ReplyMarkup = moreEventsKeyboard()
			b.send(reply)
			return nil
		}
		b.send(htmlMessage(chatID, fmt.Sprintf(textNoEvents, b.config.CommunityChat)))
		return nil
	}

	last := len(batch.Candidates) - 1
	for i := range batch.Candidates {
		reply := tgbotapi.NewMessage(chatID, eventText(&batch.Candidates[i]))
		if i == last {
			reply.ReplyMarkup = moreEventsKeyboard()
		}
		b.send(reply)
	}
	return nil
}
