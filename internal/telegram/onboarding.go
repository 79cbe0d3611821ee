// internal/telegram/onboarding.go

package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/weekender/weekender-bot/internal/profile"
	"github.com/weekender/weekender-bot/internal/recommend"
	"github.com/weekender/weekender-bot/internal/session"
)

const (
	maxProfessionLen = 50
	maxAboutLen      = 1000
)

// questionnaire order of the single-choice questions
var choiceSteps = map[profile.Category]struct {
	step session.Step
	next session.Step
}{
	profile.CategoryGender:   {session.StepGender, session.StepStatus},
	profile.CategoryStatus:   {session.StepStatus, session.StepTarget},
	profile.CategoryTarget:   {session.StepTarget, session.StepDistrict},
	profile.CategoryDistrict: {session.StepDistrict, session.StepProfession},
}

var choicePrefix = map[profile.Category]string{
	profile.CategoryGender:   cbGender,
	profile.CategoryStatus:   cbStatus,
	profile.CategoryTarget:   cbTarget,
	profile.CategoryDistrict: cbDistrict,
}

var choiceToast = map[profile.Category]string{
	profile.CategoryGender:   "Пол",
	profile.CategoryStatus:   "Статус",
	profile.CategoryTarget:   "Цель",
	profile.CategoryDistrict: "Район",
}

// onStart registers the user with their current avatar photos and greets them
func (b *Bot) onStart(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	tgID := msg.From.ID
	st.Reset()

	photos := b.profilePhotos(tgID)
	if err := b.svc.Profiles.Register(ctx, tgID, msg.From.FirstName, msg.From.UserName, photos); err != nil {
		return fmt.Errorf("register %d: %w", tgID, err)
	}

	return b.sendMainMenu(ctx, msg.Chat.ID, tgID, greeting(msg.From.FirstName))
}

// profilePhotos returns the largest size of each avatar; failures leave photos untouched
func (b *Bot) profilePhotos(tgID int64) []string {
	limit := b.config.MaxPhotos
	if limit <= 0 {
		limit = 10
	}
	res, err := b.api.GetUserProfilePhotos(tgbotapi.UserProfilePhotosConfig{UserID: tgID, Limit: limit})
	if err != nil {
		b.logger.Warn().Err(err).Int64("tg_id", tgID).Msg("failed to fetch profile photos")
		return nil
	}

	ids := make([]string, 0, len(res.Photos))
	for _, sizes := range res.Photos {
		if len(sizes) == 0 {
			continue
		}
		ids = append(ids, sizes[len(sizes)-1].FileID)
	}
	return ids
}

// onStartQuestionnaire starts a full questionnaire pre-filled with saved answers
func (b *Bot) onStartQuestionnaire(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	tgID := msg.From.ID
	draft, err := b.svc.Profiles.StartDraft(ctx, tgID)
	if err != nil {
		return err
	}

	st.Reset()
	st.Draft = draft
	st.Step = session.StepAge

	// new answers mean a new selection of events
	if err := b.svc.Recommend.Reset(ctx, tgID, recommend.PoolEvents); err != nil {
		b.logger.Warn().Err(err).Int64("tg_id", tgID).Msg("failed to reset shown events")
	}

	b.send(htmlMessage(msg.Chat.ID, textAskAge))
	return nil
}

func (b *Bot) onAge(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	age, err := b.svc.Profiles.ParseAge(msg.Text)
	switch {
	case errors.Is(err, profile.ErrAgeNotNumber):
		b.send(htmlMessage(msg.Chat.ID, textAgeNotNumber))
		return nil
	case errors.Is(err, profile.ErrAgeOutOfRange):
		b.send(htmlMessage(msg.Chat.ID, fmt.Sprintf(textAgeRange, b.config.MinAge, b.config.MaxAge)))
		return nil
	case err != nil:
		return err
	}

	st.Draft.Age = age
	st.Step = session.StepGender
	return b.askChoice(ctx, msg.Chat.ID, profile.CategoryGender, st)
}

func (b *Bot) onProfession(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.send(htmlMessage(msg.Chat.ID, textAskJob))
		return nil
	}
	if utf8.RuneCountInString(text) > maxProfessionLen {
		b.send(htmlMessage(msg.Chat.ID, textJobTooLong))
		return nil
	}

	st.Draft.Profession = text
	st.Step = session.StepAbout
	b.send(htmlMessage(msg.Chat.ID, textAskAbout))
	return nil
}

func (b *Bot) onAbout(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	text := strings.TrimSpace(msg.Text)
	if utf8.RuneCountInString(text) > maxAboutLen {
		b.send(htmlMessage(msg.Chat.ID, textAboutTooLong))
		return nil
	}

	st.Draft.About = text
	st.Step = session.StepInterests
	return b.askInterests(ctx, msg.Chat.ID, textAskInterest, st)
}

var choiceQuestion = map[profile.Category]string{
	profile.CategoryGender:   textAskGender,
	profile.CategoryStatus:   textAskStatus,
	profile.CategoryTarget:   textAskTarget,
	profile.CategoryDistrict: textAskDistrict,
}

func (b *Bot) askChoice(ctx context.Context, chatID int64, c profile.Category, st *session.State) error {
	opts, err := b.svc.Profiles.Options(ctx, c)
	if err != nil {
		return err
	}
	reply := htmlMessage(chatID, choiceQuestion[c])
	reply.ReplyMarkup = choiceKeyboard(choicePrefix[c], opts, []string{draftValue(&st.Draft, c)}, "")
	b.send(reply)
	return nil
}

func (b *Bot) askInterests(ctx context.Context, chatID int64, text string, st *session.State) error {
	opts, err := b.svc.Profiles.Options(ctx, profile.CategoryInterest)
	if err != nil {
		return err
	}
	reply := htmlMessage(chatID, text)
	reply.ReplyMarkup = choiceKeyboard(cbInterest, opts, st.Draft.Interests, cbInterestsDone)
	b.send(reply)
	return nil
}

func draftValue(d *profile.Draft, c profile.Category) string {
	switch c {
	case profile.CategoryGender:
		return d.Gender
	case profile.CategoryStatus:
		return d.Status
	case profile.CategoryTarget:
		return d.Target
	case profile.CategoryDistrict:
		return d.District
	}
	return ""
}

// findOption checks the value against the catalogue and returns the options for redrawing
func (b *Bot) findOption(ctx context.Context, c profile.Category, value string) ([]profile.Option, bool, error) {
	opts, err := b.svc.Profiles.Options(ctx, c)
	if err != nil {
		return nil, false, err
	}
	for _, o := range opts {
		if o.Name == value {
			return opts, true, nil
		}
	}
	return opts, false, nil
}

// onSingleChoice selects or clears an answer; selecting on the current question moves on
func (b *Bot) onSingleChoice(c profile.Category) callbackHandler {
	prefix := choicePrefix[c]
	return func(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
		value := strings.TrimPrefix(cb.Data, prefix)
		opts, ok, err := b.findOption(ctx, c, value)
		if err != nil {
			return answer{}, err
		}
		if !ok {
			return alert(textBadData), nil
		}

		current, err := st.Draft.SetSingle(c, value)
		if err != nil {
			return answer{}, err
		}
		b.editMarkup(cb, choiceKeyboard(prefix, opts, []string{current}, ""))

		if current == "" {
			return toast(choiceToast[c] + ": сброшен"), nil
		}

		steps := choiceSteps[c]
		if st.Step == steps.step {
			st.Step = steps.next
			if err := b.askNext(ctx, chatOf(cb), st); err != nil {
				return answer{}, err
			}
		}
		return toast(choiceToast[c] + ": " + current), nil
	}
}

func (b *Bot) askNext(ctx context.Context, chatID int64, st *session.State) error {
	switch st.Step {
	case session.StepStatus:
		return b.askChoice(ctx, chatID, profile.CategoryStatus, st)
	case session.StepTarget:
		return b.askChoice(ctx, chatID, profile.CategoryTarget, st)
	case session.StepDistrict:
		return b.askChoice(ctx, chatID, profile.CategoryDistrict, st)
	case session.StepProfession:
		b.send(htmlMessage(chatID, textAskJob))
	}
	return nil
}

func (b *Bot) onInterestToggle(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	if st.Step != session.StepInterests {
		return alert(textBadData), nil
	}

	value := strings.TrimPrefix(cb.Data, cbInterest)
	opts, ok, err := b.findOption(ctx, profile.CategoryInterest, value)
	if err != nil {
		return answer{}, err
	}
	if !ok {
		return alert(textBadData), nil
	}

	selected := st.Draft.ToggleInterest(value)
	if limit := b.svc.Profiles.MaxInterests(); selected && limit > 0 && len(st.Draft.Interests) > limit {
		st.Draft.ToggleInterest(value)
		return alert(fmt.Sprintf(textTooMany, limit)), nil
	}

	b.editMarkup(cb, choiceKeyboard(cbInterest, opts, st.Draft.Interests, cbInterestsDone))
	if selected {
		return toast("✅ " + value), nil
	}
	return toast("❌ " + value), nil
}

// onInterestsDone saves the questionnaire and shows the first events
func (b *Bot) onInterestsDone(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	if st.Step != session.StepInterests {
		return alert(textBadData), nil
	}
	if len(st.Draft.Interests) == 0 {
		return alert(textNoInterests), nil
	}

	tgID := cb.From.ID
	onlyInterests := st.EditMode == session.EditOnlyInterests

	var err error
	if onlyInterests {
		err = b.svc.Profiles.UpdateInterests(ctx, tgID, st.Draft.Interests)
	} else {
		err = b.svc.Profiles.SaveProfile(ctx, tgID, &st.Draft)
	}
	switch {
	case errors.Is(err, profile.ErrTooManyInterests):
		return alert(fmt.Sprintf(textTooMany, b.svc.Profiles.MaxInterests())), nil
	case errors.Is(err, profile.ErrDraftIncomplete), errors.Is(err, profile.ErrAgeOutOfRange):
		st.Reset()
		b.deleteMessage(cb)
		b.send(htmlMessage(chatOf(cb), textBadData))
		return answer{}, nil
	case err != nil:
		return answer{}, err
	}

	// the profile is stored, so the questionnaire must end even if showing events fails
	st.Reset()
	if err := b.svc.Sessions.Save(ctx, tgID, st); err != nil {
		return answer{}, err
	}
	b.deleteMessage(cb)

	chatID := chatOf(cb)
	if onlyInterests {
		if err := b.sendMainMenu(ctx, chatID, tgID, textInterestsOK); err != nil {
			return answer{}, err
		}
	} else {
		if err := b.sendMainMenu(ctx, chatID, tgID, textSaved); err != nil {
			return answer{}, err
		}
		b.send(htmlMessage(chatID, textMenuHelp))
	}

	if err := b.svc.Recommend.Reset(ctx, tgID, recommend.PoolEvents); err != nil {
		b.logger.Warn().Err(err).Int64("tg_id", tgID).Msg("failed to reset shown events")
	}
	return answer{}, b.showEvents(ctx, chatID, tgID)
}

// onEditEvents changes only the interests the event selection is built from
func (b *Bot) onEditEvents(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
	return answer{}, b.editInterests(ctx, chatOf(cb), cb.From.ID, st)
}

func (b *Bot) onEditEventsText(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	return b.editInterests(ctx, msg.Chat.ID, msg.From.ID, st)
}

func (b *Bot) editInterests(ctx context.Context, chatID, tgID int64, st *session.State) error {
	ok, err := b.svc.Profiles.HasProfile(ctx, tgID)
	if err != nil {
		return err
	}
	if !ok {
		b.send(htmlMessage(chatID, textNeedProfile))
		return nil
	}

	draft, err := b.svc.Profiles.StartDraft(ctx, tgID)
	if err != nil {
		return err
	}
	st.Reset()
	st.Draft = draft
	st.EditMode = session.EditOnlyInterests
	st.Step = session.StepInterests

	return b.askInterests(ctx, chatID, textEditInterests, st)
}
