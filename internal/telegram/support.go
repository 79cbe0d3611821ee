// internal/telegram/support.go

package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/weekender/weekender-bot/internal/session"
	"github.com/weekender/weekender-bot/internal/support"
)

const ticketListLimit = 20

func (b *Bot) onSupportStart(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	st.Reset()
	st.Step = session.StepSupport
	b.send(htmlMessage(msg.Chat.ID, textSupportIntro))
	return nil
}

// onSupportMessage files the message on the user's ticket and relays it to every admin
func (b *Bot) onSupportMessage(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	ticket, _, err := b.svc.Support.UserMessage(ctx, msg.From.ID, text)
	switch {
	case errors.Is(err, support.ErrEmptyMessage):
		b.send(htmlMessage(msg.Chat.ID, textSupportIntro))
		return nil
	case errors.Is(err, support.ErrUserNotFound):
		st.Reset()
		b.send(htmlMessage(msg.Chat.ID, textNeedProfile))
		return nil
	case err != nil:
		return err
	}

	b.send(htmlMessage(msg.Chat.ID, textSupportSent))

	admins, err := b.svc.Auth.Admins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	relay := fmt.Sprintf(textSupportNew, ticket.ID, html.EscapeString(ticket.DisplayName()), ticket.TgID, html.EscapeString(text))
	for _, a := range admins {
		m := htmlMessage(a.TgID, relay)
		m.ReplyMarkup = ticketKeyboard(ticket.ID)
		if _, err := b.api.Send(m); err != nil {
			b.logger.Warn().Err(err).Int64("admin", a.TgID).Int64("ticket_id", ticket.ID).Msg("failed to relay support message")
		}
	}
	return nil
}

func ticketIDFrom(data, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	return id, err == nil && id > 0
}

func (b *Bot) onSupportReplyStart(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	id, ok := ticketIDFrom(cb.Data, cbSupportReply)
	if !ok {
		return alert(textBadData), nil
	}
	ticket, err := b.svc.Support.Ticket(ctx, id)
	if errors.Is(err, support.ErrTicketNotFound) {
		return alert(textTicketClosed), nil
	}
	if err != nil {
		return answer{}, err
	}
	if !ticket.IsActive {
		return alert(textTicketClosed), nil
	}

	st.Reset()
	st.Step = session.StepSupportReply
	st.ReplyTicketID = id
	b.send(htmlMessage(chatOf(cb), fmt.Sprintf(textAskReply, id)))
	return answer{}, nil
}

// onSupportReply delivers an admin answer to the ticket author
func (b *Bot) onSupportReply(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	if !b.requireAdmin(ctx, msg, st) {
		return nil
	}
	ticketID := st.ReplyTicketID
	st.Reset()

	ticket, err := b.svc.Support.AdminReply(ctx, ticketID, msg.Text)
	switch {
	case errors.Is(err, support.ErrTicketClosed), errors.Is(err, support.ErrTicketNotFound):
		b.send(htmlMessage(msg.Chat.ID, textTicketClosed))
		return nil
	case errors.Is(err, support.ErrEmptyMessage):
		st.Step = session.StepSupportReply
		st.ReplyTicketID = ticketID
		b.send(htmlMessage(msg.Chat.ID, fmt.Sprintf(textAskReply, ticketID)))
		return nil
	case err != nil:
		return err
	}

	reply := htmlMessage(ticket.TgID, fmt.Sprintf(textSupportReply, html.EscapeString(msg.Text)))
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Warn().Err(err).Int64("ticket_id", ticketID).Msg("failed to deliver support reply")
		b.send(htmlMessage(msg.Chat.ID, textReplyFailed))
		return nil
	}
	b.send(htmlMessage(msg.Chat.ID, textReplySent))
	return nil
}

func (b *Bot) onSupportClose(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	id, ok := ticketIDFrom(cb.Data, cbSupportClose)
	if !ok {
		return alert(textBadData), nil
	}
	ticket, err := b.svc.Support.Close(ctx, id)
	if errors.Is(err, support.ErrTicketClosed) || errors.Is(err, support.ErrTicketNotFound) {
		return alert(textTicketClosed), nil
	}
	if err != nil {
		return answer{}, err
	}

	b.editMarkup(cb, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	b.send(htmlMessage(ticket.TgID, textSupportClosed))
	b.leaveSupport(ctx, ticket.TgID)
	return toast(fmt.Sprintf(textTicketDone, id)), nil
}

// leaveSupport takes the ticket author out of support mode
func (b *Bot) leaveSupport(ctx context.Context, tgID int64) {
	st, err := b.svc.Sessions.Get(ctx, tgID)
	if err != nil || st.Step != session.StepSupport {
		return
	}
	st.Reset()
	if err := b.svc.Sessions.Save(ctx, tgID, st); err != nil {
		b.logger.Warn().Err(err).Int64("tg_id", tgID).Msg("failed to reset support session")
	}
}

func (b *Bot) onSupportList(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	tickets, err := b.svc.Support.ActiveTickets(ctx, ticketListLimit)
	if err != nil {
		return answer{}, err
	}
	chatID := chatOf(cb)
	if len(tickets) == 0 {
		b.send(htmlMessage(chatID, textNoTickets))
		return answer{}, nil
	}

	for _, t := range tickets {
		line := fmt.Sprintf(textTicketLine, t.ID, html.EscapeString(t.DisplayName()), t.UpdatedAt.Format("02.01.2006 15:04"))
		if n := len(t.Messages); n > 0 {
			line += "\n" + html.EscapeString(t.Messages[n-1].Text)
		}
		m := htmlMessage(chatID, line)
		m.ReplyMarkup = ticketKeyboard(t.ID)
		b.send(m)
	}
	return answer{}, nil
}
