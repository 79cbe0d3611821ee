// internal/telegram/people.go

package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/weekender/weekender-bot/internal/dating"
	"github.com/weekender/weekender-bot/internal/profile"
	"github.com/weekender/weekender-bot/internal/recommend"
	"github.com/weekender/weekender-bot/internal/session"
)

func (b *Bot) onResidents(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	reply := htmlMessage(msg.Chat.ID, textResidentsMenu)
	reply.ReplyMarkup = residentsKeyboard()
	b.send(reply)
	return nil
}

func (b *Bot) onOwnProfile(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	p, err := b.svc.Profiles.GetProfile(ctx, cb.From.ID)
	if errors.Is(err, profile.ErrProfileNotFound) || errors.Is(err, profile.ErrUserNotFound) {
		return alert(textNeedProfile), nil
	}
	if err != nil {
		return answer{}, err
	}
	return answer{}, sendProfile(b.api, chatOf(cb), cardFromProfile(p), p.PhotoIDs, nil)
}

func (b *Bot) onFindUserStart(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	st.Reset()
	st.Step = session.StepFindUser
	b.send(htmlMessage(chatOf(cb), textAskUsername))
	return answer{}, nil
}

// onFindUser shows another resident looked up by username
func (b *Bot) onFindUser(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	st.Reset()

	p, err := b.svc.Profiles.FindByUsername(ctx, msg.Text)
	if errors.Is(err, profile.ErrProfileNotFound) || errors.Is(err, profile.ErrUserNotFound) {
		b.send(htmlMessage(msg.Chat.ID, textUserNotFound))
		return nil
	}
	if err != nil {
		return err
	}

	var markup interface{}
	if p.TgID != msg.From.ID {
		markup, err = b.reactionMarkup(ctx, msg.From.ID, p.TgID, deref(p.Username))
		if err != nil {
			return err
		}
	}
	return sendProfile(b.api, msg.Chat.ID, cardFromProfile(p), p.PhotoIDs, markup)
}

func (b *Bot) onFindPeople(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	ok, err := b.svc.Profiles.HasProfile(ctx, cb.From.ID)
	if err != nil {
		return answer{}, err
	}
	if !ok {
		return alert(textNeedProfile), nil
	}

	opts, err := b.svc.Profiles.Options(ctx, profile.CategoryAgeRange)
	if err != nil {
		return answer{}, err
	}
	st.Reset()
	st.Step = session.StepAgeRanges

	reply := htmlMessage(chatOf(cb), textAskAgeRanges)
	reply.ReplyMarkup = choiceKeyboard(cbAgeRange, opts, nil, cbAgeDone)
	b.send(reply)
	return answer{}, nil
}

func (b *Bot) onAgeRangeToggle(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	if st.Step != session.StepAgeRanges {
		return alert(textBadData), nil
	}
	value := strings.TrimPrefix(cb.Data, cbAgeRange)
	opts, ok, err := b.findOption(ctx, profile.CategoryAgeRange, value)
	if err != nil {
		return answer{}, err
	}
	if !ok {
		return alert(textBadData), nil
	}

	var selected bool
	st.AgeRanges, selected = profile.Toggle(st.AgeRanges, value)
	b.editMarkup(cb, choiceKeyboard(cbAgeRange, opts, st.AgeRanges, cbAgeDone))
	if selected {
		return toast("✅ " + value), nil
	}
	return toast("❌ " + value), nil
}

// onAgeRangesDone starts a fresh search for the chosen ranges
func (b *Bot) onAgeRangesDone(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	if st.Step != session.StepAgeRanges {
		return alert(textBadData), nil
	}
	if len(st.AgeRanges) == 0 {
		return alert(textNoAgeRanges), nil
	}
	st.Step = session.StepIdle

	tgID := cb.From.ID
	chatID := chatOf(cb)
	if err := b.svc.Recommend.Reset(ctx, tgID, recommend.PoolUsers); err != nil {
		return answer{}, err
	}

	b.deleteMessage(cb)
	b.send(htmlMessage(chatID, textSearching))
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug().Err(err).Msg("failed to send chat action")
	}
	return answer{}, b.showPeople(ctx, chatID, tgID, st.AgeRanges)
}

func (b *Bot) onShowMorePeople(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	if len(st.AgeRanges) == 0 {
		return alert(textNoAgeRanges), nil
	}
	b.deleteMessage(cb)
	return answer{}, b.showPeople(ctx, chatOf(cb), cb.From.ID, st.AgeRanges)
}

// showPeople sends one page of compatible residents with reaction buttons
func (b *Bot) showPeople(ctx context.Context, chatID, tgID int64, ageRanges []string) error {
	viewer, err := b.svc.Profiles.GetProfile(ctx, tgID)
	if errors.Is(err, profile.ErrProfileNotFound) || errors.Is(err, profile.ErrUserNotFound) {
		b.send(htmlMessage(chatID, textNeedProfile))
		return nil
	}
	if err != nil {
		return err
	}

	batch, err := b.svc.Recommend.NextPeople(ctx, tgID, ageRanges, b.config.PeoplePageSize)
	if err != nil {
		if errors.Is(err, recommend.ErrMissingRequiredAttribute) {
			b.send(htmlMessage(chatID, textNeedProfile))
			return nil
		}
		return fmt.Errorf("next people for %d: %w", tgID, err)
	}

	if len(batch.Candidates) == 0 {
		if err := b.svc.Recommend.Reset(ctx, tgID, recommend.PoolUsers); err != nil {
			b.logger.Warn().Err(err).Int64("tg_id", tgID).Msg("failed to reset shown people")
		}
		b.send(htmlMessage(chatID, textNoPeople))
		return nil
	}

	snap, err := b.svc.Dating.Snapshot(ctx, tgID)
	if err != nil {
		return err
	}
	kind := dating.KindForTarget(viewer.Target)

	for i := range batch.Candidates {
		c := &batch.Candidates[i]
		markup := personKeyboard(kind, c.ID, c.Username, snap)
		if err := sendProfile(b.api, chatID, cardFromCandidate(c), c.PhotoIDs, markup); err != nil {
			b.logger.Warn().Err(err).Int64("candidate", c.ID).Msg("failed to send candidate")
		}
	}

	reply := htmlMessage(chatID, textMorePeople)
	reply.ReplyMarkup = showMoreKeyboard()
	b.send(reply)
	return nil
}

// reactionMarkup renders the viewer's toggle for target in its current state
func (b *Bot) reactionMarkup(ctx context.Context, viewerID, targetID int64, username string) (tgbotapi.InlineKeyboardMarkup, error) {
	viewer, err := b.svc.Profiles.GetProfile(ctx, viewerID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) || errors.Is(err, profile.ErrUserNotFound) {
			return writeKeyboard(targetID, username), nil
		}
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	snap, err := b.svc.Dating.Snapshot(ctx, viewerID)
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	return personKeyboard(dating.KindForTarget(viewer.Target), targetID, username, snap), nil
}

// onReactionToggle sends or withdraws a like or friend request
func (b *Bot) onReactionToggle(kind dating.Kind) callbackHandler {
	prefix := cbLikeToggle
	if kind == dating.KindFriend {
		prefix = cbFriendTog
	}
	return func(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
		targetID, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, prefix), 10, 64)
		if err != nil {
			return alert(textBadData), nil
		}

		res, err := b.svc.Dating.Toggle(ctx, cb.From.ID, targetID, kind)
		switch {
		case errors.Is(err, dating.ErrSelfReaction):
			return toast(textSelfReaction), nil
		case errors.Is(err, dating.ErrUserNotFound):
			return alert(textUserNotFound), nil
		case err != nil:
			return answer{}, err
		}

		username := ""
		if u, err := b.svc.Profiles.GetUser(ctx, targetID); err == nil {
			username = deref(u.Username)
		}
		if snap, err := b.svc.Dating.Snapshot(ctx, cb.From.ID); err == nil {
			b.editMarkup(cb, personKeyboard(kind, targetID, username, snap))
		}

		switch {
		case res.Mutual && res.Added:
			return toast(matchTitle(kind)), nil
		case res.Added && kind == dating.KindLike:
			return toast(textLikeOn), nil
		case res.Added:
			return toast(textFriendOn), nil
		case kind == dating.KindLike:
			return toast(textLikeOff), nil
		}
		return toast(textFriendOff), nil
	}
}

func (b *Bot) onPoints(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	points, err := b.svc.Profiles.Points(ctx, msg.From.ID)
	if errors.Is(err, profile.ErrUserNotFound) {
		b.send(htmlMessage(msg.Chat.ID, textNeedProfile))
		return nil
	}
	if err != nil {
		return err
	}
	b.send(htmlMessage(msg.Chat.ID, fmt.Sprintf(textPoints, points)))
	return nil
}

func (b *Bot) onChat(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	reply := htmlMessage(msg.Chat.ID, textChat)
	reply.ReplyMarkup = chatKeyboard(b.config.ChatURL)
	b.send(reply)
	return nil
}
