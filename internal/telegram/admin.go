// internal/telegram/admin.go

package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"runtime/debug"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/weekender/weekender-bot/internal/notification"
	"github.com/weekender/weekender-bot/internal/profile"
	"github.com/weekender/weekender-bot/internal/session"
)

// requireAdmin answers non-admins and drops whatever they were doing
func (b *Bot) requireAdmin(ctx context.Context, msg *tgbotapi.Message, st *session.State) bool {
	if b.svc.Auth.IsAdmin(ctx, msg.From.ID) {
		return true
	}
	st.Reset()
	b.send(htmlMessage(msg.Chat.ID, textNoRights))
	return false
}

func (b *Bot) onAdminMenu(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	if !b.requireAdmin(ctx, msg, st) {
		return nil
	}
	st.Reset()
	reply := htmlMessage(msg.Chat.ID, textAdminMenu)
	reply.ReplyMarkup = adminKeyboard()
	b.send(reply)
	return nil
}

func (b *Bot) onToken(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	if !b.requireAdmin(ctx, msg, st) {
		return nil
	}
	return b.sendToken(ctx, msg.Chat.ID, msg.From.ID, msg.From.UserName)
}

func (b *Bot) onTokenCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	return answer{}, b.sendToken(ctx, chatOf(cb), cb.From.ID, cb.From.UserName)
}

// sendToken issues a bearer token for the admin HTTP API
func (b *Bot) sendToken(ctx context.Context, chatID, tgID int64, username string) error {
	token, err := b.svc.Auth.IssueToken(ctx, tgID, username)
	if err != nil {
		return err
	}
	b.send(htmlMessage(chatID, fmt.Sprintf(textToken, token.ExpiresAt.Format("02.01.2006 15:04"), token.Token)))
	return nil
}

// segmentStep describes one filter question of the mailing wizard
type segmentStep struct {
	category profile.Category
	prefix   string
	done     string
	text     string
	next     session.Step
}

var segmentSteps = map[session.Step]segmentStep{
	session.StepMailingAge:      {profile.CategoryAgeRange, cbSelectAge, cbDoneAge, textSelectAges, session.StepMailingDistrict},
	session.StepMailingDistrict: {profile.CategoryDistrict, cbSelectDistrict, cbDoneDistrict, textSelectDistricts, session.StepMailingTarget},
	session.StepMailingTarget:   {profile.CategoryTarget, cbSelectTarget, cbDoneTarget, textSelectTargets, session.StepMailingGender},
	session.StepMailingGender:   {profile.CategoryGender, cbSelectGender, cbDoneGender, textSelectGenders, session.StepIdle},
}

var segmentStepFor = map[profile.Category]session.Step{
	profile.CategoryAgeRange: session.StepMailingAge,
	profile.CategoryDistrict: session.StepMailingDistrict,
	profile.CategoryTarget:   session.StepMailingTarget,
	profile.CategoryGender:   session.StepMailingGender,
}

// segmentField is the filter list a category edits
func segmentField(seg *notification.Segment, c profile.Category) *[]string {
	switch c {
	case profile.CategoryAgeRange:
		return &seg.AgeRanges
	case profile.CategoryDistrict:
		return &seg.Districts
	case profile.CategoryTarget:
		return &seg.Targets
	case profile.CategoryGender:
		return &seg.Genders
	}
	return nil
}

func (b *Bot) onMassSend(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	st.Reset()
	st.Mailing = &session.MailingDraft{}
	st.Step = session.StepMailingAge
	return answer{}, b.askSegment(ctx, chatOf(cb), st)
}

func (b *Bot) onMassSendAll(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	st.Reset()
	st.Mailing = &session.MailingDraft{Segment: notification.Segment{All: true}}
	return answer{}, b.showRecipients(ctx, chatOf(cb), st)
}

func (b *Bot) askSegment(ctx context.Context, chatID int64, st *session.State) error {
	step := segmentSteps[st.Step]
	opts, err := b.svc.Profiles.Options(ctx, step.category)
	if err != nil {
		return err
	}
	reply := htmlMessage(chatID, step.text)
	reply.ReplyMarkup = choiceKeyboard(step.prefix, opts, *segmentField(&st.Mailing.Segment, step.category), step.done)
	b.send(reply)
	return nil
}

func (b *Bot) onSegmentToggle(c profile.Category) callbackHandler {
	want := segmentStepFor[c]
	step := segmentSteps[want]
	return func(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
		if st.Mailing == nil || st.Step != want {
			return alert(textBadData), nil
		}
		value := strings.TrimPrefix(cb.Data, step.prefix)
		opts, ok, err := b.findOption(ctx, c, value)
		if err != nil {
			return answer{}, err
		}
		if !ok {
			return alert(textBadData), nil
		}

		field := segmentField(&st.Mailing.Segment, c)
		var selected bool
		*field, selected = profile.Toggle(*field, value)
		b.editMarkup(cb, choiceKeyboard(step.prefix, opts, *field, step.done))
		if selected {
			return toast("✅ " + value), nil
		}
		return toast("❌ " + value), nil
	}
}

// onSegmentStepDone moves to the next filter, or counts recipients after the last one
func (b *Bot) onSegmentStepDone(current session.Step) callbackHandler {
	return func(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
		if st.Mailing == nil || st.Step != current {
			return alert(textBadData), nil
		}
		b.deleteMessage(cb)

		st.Step = segmentSteps[current].next
		if st.Step == session.StepIdle {
			return answer{}, b.showRecipients(ctx, chatOf(cb), st)
		}
		return answer{}, b.askSegment(ctx, chatOf(cb), st)
	}
}

func (b *Bot) showRecipients(ctx context.Context, chatID int64, st *session.State) error {
	seg := &st.Mailing.Segment
	n, err := b.svc.Mailing.CountRecipients(ctx, seg)
	if err != nil {
		return err
	}
	if n == 0 {
		st.Reset()
		b.send(htmlMessage(chatID, textNoRecipients))
		return nil
	}

	st.Step = session.StepIdle
	reply := htmlMessage(chatID, fmt.Sprintf(textRecipients, html.EscapeString(seg.Describe()), n))
	reply.ReplyMarkup = recipientsKeyboard()
	b.send(reply)
	return nil
}

// onComposeMailing starts collecting the mailing content, discarding earlier content
func (b *Bot) onComposeMailing(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	if st.Mailing == nil {
		return alert(textBadData), nil
	}
	st.Mailing.Mailing = notification.Mailing{}
	st.Step = session.StepMailingText

	reply := htmlMessage(chatOf(cb), textAskMailing)
	reply.ReplyMarkup = composeKeyboard()
	b.send(reply)
	return answer{}, nil
}

// mediaOf extracts the attachment of a message, if any
func mediaOf(msg *tgbotapi.Message) (notification.Media, string, bool) {
	switch {
	case len(msg.Photo) > 0:
		return notification.Media{Type: notification.MediaPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID}, "фото", true
	case msg.Video != nil:
		return notification.Media{Type: notification.MediaVideo, FileID: msg.Video.FileID}, "видео", true
	case msg.Document != nil:
		return notification.Media{Type: notification.MediaDocument, FileID: msg.Document.FileID}, "документ", true
	}
	return notification.Media{}, "", false
}

// onMailingContent adds text and attachments; later text replaces earlier text
func (b *Bot) onMailingContent(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	if !b.requireAdmin(ctx, msg, st) {
		return nil
	}
	if st.Mailing == nil {
		st.Reset()
		return b.onUnknown(ctx, msg, st)
	}

	next := st.Mailing.Mailing
	next.Media = append([]notification.Media(nil), next.Media...)
	var added []string

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.TrimSpace(text) != "" {
		next.Text = text
		added = append(added, "текст")
	}
	if md, label, ok := mediaOf(msg); ok {
		next.Media = append(next.Media, md)
		added = append(added, label)
	}

	if len(added) == 0 {
		b.send(htmlMessage(msg.Chat.ID, textMailingEmpty))
		return nil
	}
	if err := next.Validate(); err != nil {
		b.send(htmlMessage(msg.Chat.ID, fmt.Sprintf(textMailingInvalid, html.EscapeString(err.Error()))))
		return nil
	}

	st.Mailing.Mailing = next
	reply := htmlMessage(msg.Chat.ID, fmt.Sprintf(textMailingAdded, strings.Join(added, " и ")))
	reply.ReplyMarkup = composeKeyboard()
	b.send(reply)
	return nil
}

// onMailingDone shows the admin exactly what recipients will get
func (b *Bot) onMailingDone(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	if st.Mailing == nil || st.Step != session.StepMailingText {
		return alert(textBadData), nil
	}
	m := &st.Mailing.Mailing
	if err := m.Validate(); err != nil {
		if errors.Is(err, notification.ErrEmptyMailing) {
			return alert(textMailingEmpty), nil
		}
		return alert(fmt.Sprintf(textMailingInvalid, html.EscapeString(err.Error()))), nil
	}

	chatID := chatOf(cb)
	b.send(htmlMessage(chatID, textPreview))
	if err := sendMailing(b.api, chatID, m); err != nil {
		b.send(htmlMessage(chatID, fmt.Sprintf(textMailingInvalid, html.EscapeString(err.Error()))))
		return answer{}, nil
	}

	st.Step = session.StepMailingPreview
	reply := htmlMessage(chatID, fmt.Sprintf(textConfirm, html.EscapeString(st.Mailing.Segment.Describe())))
	reply.ReplyMarkup = previewKeyboard()
	b.send(reply)
	return answer{}, nil
}

func (b *Bot) onCancelMailing(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	st.Reset()
	b.deleteMessage(cb)
	return toast(textCancelled), nil
}

// onStartMailing runs the broadcast in the background and keeps a progress message current
func (b *Bot) onStartMailing(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	if st.Mailing == nil || st.Step != session.StepMailingPreview {
		return alert(textBadData), nil
	}
	segment := st.Mailing.Segment
	mailing := st.Mailing.Mailing
	st.Reset()
	b.deleteMessage(cb)

	chatID := chatOf(cb)
	adminID := cb.From.ID

	total, err := b.svc.Mailing.CountRecipients(ctx, &segment)
	if err != nil {
		return answer{}, err
	}
	if total == 0 {
		b.send(htmlMessage(chatID, textNoRecipients))
		return answer{}, nil
	}

	status, err := b.api.Send(htmlMessage(chatID, fmt.Sprintf(textMailingStarted, total)))
	if err != nil {
		return answer{}, err
	}

	b.jobs.Add(1)
	go func() {
		defer b.jobs.Done()
		defer func() {
			if r := recover(); r != nil {
				handlerErrors.WithLabelValues("panic").Inc()
				b.logger.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("panic in mailing")
				b.send(htmlMessage(chatID, textMailingFailed))
			}
		}()

		progress := func(p notification.Progress) {
			edit := tgbotapi.NewEditMessageText(chatID, status.MessageID, progressText(p))
			if _, err := b.api.Request(edit); err != nil && !notModified(err) {
				b.logger.Debug().Err(err).Msg("failed to update mailing progress")
			}
		}

		report, err := b.svc.Mailing.Broadcast(b.jobsCtx, adminID, &segment, &mailing, progress)
		switch {
		case errors.Is(err, notification.ErrMailingInProgress):
			b.send(htmlMessage(chatID, textMailingBusy))
		case errors.Is(err, notification.ErrNoRecipients):
			b.send(htmlMessage(chatID, textNoRecipients))
		case err != nil:
			b.logger.Error().Err(err).Int64("admin_tg_id", adminID).Msg("mailing failed")
			b.send(htmlMessage(chatID, textMailingFailed))
		default:
			b.send(htmlMessage(chatID, reportText(report)))
		}
	}()

	return toast(""), nil
}
