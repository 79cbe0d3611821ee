// internal/telegram/bot.go
// Long-polling update loop and routing of commands, texts and callbacks

package telegram

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/weekender/weekender-bot/internal/auth"
	"github.com/weekender/weekender-bot/internal/common/logging"
	"github.com/weekender/weekender-bot/internal/dating"
	"github.com/weekender/weekender-bot/internal/notification"
	"github.com/weekender/weekender-bot/internal/profile"
	"github.com/weekender/weekender-bot/internal/recommend"
	"github.com/weekender/weekender-bot/internal/session"
	"github.com/weekender/weekender-bot/internal/support"
)

// Services are the domain services the bot talks to
type Services struct {
	Profiles  profile.Service
	Recommend recommend.Service
	Dating    dating.Service
	Mailing   notification.Service
	Support   support.Service
	Auth      auth.Service
	Sessions  session.Store
}

// Config holds bot behaviour settings
type Config struct {
	EventsPageSize int
	PeoplePageSize int
	MinAge         int
	MaxAge         int
	MaxPhotos      int
	ChatURL        string
	AssistantURL   string
	CommunityChat  string
	HandlerTimeout time.Duration
	Workers        int
}

// DefaultConfig matches the production bot
func DefaultConfig() Config {
	return Config{
		EventsPageSize: 3,
		PeoplePageSize: 7,
		MinAge:         18,
		MaxAge:         60,
		MaxPhotos:      10,
		ChatURL:        "https://t.me/+hAwst9wJ-4kzNTdi",
		AssistantURL:   "https://t.me/weekender_main",
		CommunityChat:  "@weekender_chat",
		HandlerTimeout: 30 * time.Second,
		Workers:        8,
	}
}

type Bot struct {
	api    API
	svc    Services
	config Config
	logger zerolog.Logger

	// mailings outlive the update that started them
	jobs    sync.WaitGroup
	jobsCtx context.Context
}

func NewBot(api API, svc Services, config Config) *Bot {
	return &Bot{
		api:     api,
		svc:     svc,
		config:  config,
		logger:  logging.Component("telegram"),
		jobsCtx: context.Background(),
	}
}

// Run dispatches updates to a fixed set of workers until ctx is cancelled or the
// channel closes. Updates from one user always land on the same worker, so they
// are handled in order while different users proceed in parallel.
// It returns after the workers and running mailings have stopped.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	b.jobsCtx = ctx
	defer b.jobs.Wait()

	n := b.config.Workers
	if n < 1 {
		n = 1
	}
	queues := make([]chan tgbotapi.Update, n)
	var workers sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan tgbotapi.Update, workerQueueSize)
		workers.Add(1)
		go func(queue <-chan tgbotapi.Update) {
			defer workers.Done()
			for update := range queue {
				if ctx.Err() != nil {
					continue
				}
				b.HandleUpdate(ctx, update)
			}
		}(queues[i])
	}
	stop := func() {
		for _, q := range queues {
			close(q)
		}
		workers.Wait()
	}

	b.logger.Info().Int("workers", n).Msg("bot started")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("bot stopping")
			stop()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				stop()
				return nil
			}
			select {
			case queues[workerFor(update, n)] <- update:
			case <-ctx.Done():
			}
		}
	}
}

const workerQueueSize = 32

// workerFor keys updates by sender, falling back to the chat
func workerFor(u tgbotapi.Update, workers int) int {
	key := updateChatID(u)
	if u.Message != nil && u.Message.From != nil {
		key = u.Message.From.ID
	}
	if key < 0 {
		key = -key
	}
	return int(key % int64(workers))
}

// HandleUpdate never panics; handler failures are logged and reported to the user
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	kind := updateKind(update)
	updatesTotal.WithLabelValues(kind).Inc()
	start := time.Now()
	defer func() {
		handlerDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	if b.config.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.HandlerTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			handlerErrors.WithLabelValues("panic").Inc()
			b.logger.Error().
				Interface("panic", r).
				Int("update_id", update.UpdateID).
				Str("stack", string(debug.Stack())).
				Msg("panic in update handler")
			if chatID := updateChatID(update); chatID != 0 {
				b.send(htmlMessage(chatID, textError))
			}
		}
	}()

	var err error
	switch {
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		handlerErrors.WithLabelValues("error").Inc()
		b.logger.Error().Err(err).Int("update_id", update.UpdateID).Str("kind", kind).Msg("update handler failed")
	}
}

func updateKind(u tgbotapi.Update) string {
	switch {
	case u.Message != nil && u.Message.IsCommand():
		return "command"
	case u.Message != nil:
		return "message"
	case u.CallbackQuery != nil:
		return "callback"
	}
	return "other"
}

func updateChatID(u tgbotapi.Update) int64 {
	switch {
	case u.Message != nil && u.Message.Chat != nil:
		return u.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	}
	return 0
}

type messageHandler func(ctx context.Context, msg *tgbotapi.Message, st *session.State) error

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return nil
	}
	tgID := msg.From.ID

	st, err := b.svc.Sessions.Get(ctx, tgID)
	if err != nil {
		b.send(htmlMessage(msg.Chat.ID, textError))
		return fmt.Errorf("load session: %w", err)
	}

	handler := b.routeMessage(msg, st)
	if err := handler(ctx, msg, st); err != nil {
		b.send(htmlMessage(msg.Chat.ID, textError))
		return err
	}
	return b.svc.Sessions.Save(ctx, tgID, st)
}

func (b *Bot) routeMessage(msg *tgbotapi.Message, st *session.State) messageHandler {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return b.onStart
		case "cancel":
			return b.onCancel
		case "admin":
			return b.onAdminMenu
		case "token":
			return b.onToken
		}
		return b.onUnknown
	}

	switch msg.Text {
	case btnStart:
		return b.onStartQuestionnaire
	case btnEditEvents:
		return b.onEditEventsText
	case btnResidents:
		return b.onResidents
	case btnEvents:
		return b.onEventsMenu
	case btnRepeat:
		return b.onRepeatEvents
	case btnPoints:
		return b.onPoints
	case btnChat:
		return b.onChat
	case btnSupport:
		return b.onSupportStart
	case btnAdmin:
		return b.onAdminMenu
	}

	switch st.Step {
	case session.StepAge:
		return b.onAge
	case session.StepProfession:
		return b.onProfession
	case session.StepAbout:
		return b.onAbout
	case session.StepFindUser:
		return b.onFindUser
	case session.StepSupport:
		return b.onSupportMessage
	case session.StepSupportReply:
		return b.onSupportReply
	case session.StepMailingText:
		return b.onMailingContent
	}
	return b.onUnknown
}

// answer is the toast shown on a pressed inline button
type answer struct {
	text  string
	alert bool
}

func toast(text string) answer { return answer{text: text} }
func alert(text string) answer { return answer{text: text, alert: true} }

type callbackHandler func(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil {
		return nil
	}
	tgID := cb.From.ID

	st, err := b.svc.Sessions.Get(ctx, tgID)
	if err != nil {
		b.answerCallback(cb, alert(textError))
		return fmt.Errorf("load session: %w", err)
	}

	handler := b.routeCallback(cb.Data)
	if handler == nil {
		b.answerCallback(cb, toast(""))
		b.logger.Warn().Str("data", cb.Data).Msg("unknown callback")
		return nil
	}

	ans, err := handler(ctx, cb, st)
	if err != nil {
		b.answerCallback(cb, alert(textBadData))
		return fmt.Errorf("callback %q: %w", cb.Data, err)
	}
	b.answerCallback(cb, ans)
	return b.svc.Sessions.Save(ctx, tgID, st)
}

func (b *Bot) routeCallback(data string) callbackHandler {
	switch data {
	case cbProfile:
		return b.onOwnProfile
	case cbEditProfile:
		return b.callbackFor(b.onStartQuestionnaire)
	case cbFindUser:
		return b.onFindUserStart
	case cbFindPeople:
		return b.onFindPeople
	case cbEvents, cbEventsMore:
		return b.callbackFor(b.onRepeatEvents)
	case cbEditEvents:
		return b.onEditEvents
	case cbShowMorePeople:
		return b.onShowMorePeople
	case cbAgeDone:
		return b.onAgeRangesDone
	case cbInterestsDone:
		return b.onInterestsDone

	case cbMassSend:
		return b.adminOnly(b.onMassSend)
	case cbMassSendAll:
		return b.adminOnly(b.onMassSendAll)
	case cbDoneAge:
		return b.adminOnly(b.onSegmentStepDone(session.StepMailingAge))
	case cbDoneDistrict:
		return b.adminOnly(b.onSegmentStepDone(session.StepMailingDistrict))
	case cbDoneTarget:
		return b.adminOnly(b.onSegmentStepDone(session.StepMailingTarget))
	case cbDoneGender:
		return b.adminOnly(b.onSegmentStepDone(session.StepMailingGender))
	case cbAddMessage, cbEditMailing:
		return b.adminOnly(b.onComposeMailing)
	case cbDoneMailing:
		return b.adminOnly(b.onMailingDone)
	case cbStartMailing:
		return b.adminOnly(b.onStartMailing)
	case cbCancelMailing:
		return b.adminOnly(b.onCancelMailing)
	case cbSupportList:
		return b.adminOnly(b.onSupportList)
	case cbAdminToken:
		return b.adminOnly(b.onTokenCallback)
	}

	prefixed := []struct {
		prefix  string
		handler callbackHandler
	}{
		{cbGender, b.onSingleChoice(profile.CategoryGender)},
		{cbStatus, b.onSingleChoice(profile.CategoryStatus)},
		{cbTarget, b.onSingleChoice(profile.CategoryTarget)},
		{cbDistrict, b.onSingleChoice(profile.CategoryDistrict)},
		{cbInterest, b.onInterestToggle},
		{cbAgeRange, b.onAgeRangeToggle},
		{cbLikeToggle, b.onReactionToggle(dating.KindLike)},
		{cbFriendTog, b.onReactionToggle(dating.KindFriend)},
		{cbSelectAge, b.adminOnly(b.onSegmentToggle(profile.CategoryAgeRange))},
		{cbSelectDistrict, b.adminOnly(b.onSegmentToggle(profile.CategoryDistrict))},
		{cbSelectTarget, b.adminOnly(b.onSegmentToggle(profile.CategoryTarget))},
		{cbSelectGender, b.adminOnly(b.onSegmentToggle(profile.CategoryGender))},
		{cbSupportReply, b.adminOnly(b.onSupportReplyStart)},
		{cbSupportClose, b.adminOnly(b.onSupportClose)},
	}
	for _, p := range prefixed {
		if strings.HasPrefix(data, p.prefix) {
			return p.handler
		}
	}
	return nil
}

// callbackFor runs a message handler for a button that behaves like a menu text
func (b *Bot) callbackFor(h messageHandler) callbackHandler {
	return func(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
		if cb.Message == nil {
			return alert(textBadData), nil
		}
		msg := *cb.Message
		msg.From = cb.From
		return answer{}, h(ctx, &msg, st)
	}
}

func (b *Bot) adminOnly(h callbackHandler) callbackHandler {
	return func(ctx context.Context, cb *tgbotapi.CallbackQuery, st *session.State) (answer, error) {
		if !b.svc.Auth.IsAdmin(ctx, cb.From.ID) {
			return alert(textNoRights), nil
		}
		return h(ctx, cb, st)
	}
}

func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery, ans answer) {
	cfg := tgbotapi.NewCallback(cb.ID, ans.text)
	if ans.alert {
		cfg = tgbotapi.NewCallbackWithAlert(cb.ID, ans.text)
	}
	if _, err := b.api.Request(cfg); err != nil {
		b.logger.Debug().Err(err).Msg("failed to answer callback")
	}
}

// send logs delivery failures; callers that need the message use api.Send directly
func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn().Err(err).Msg("failed to send message")
	}
}

// editMarkup replaces the inline keyboard of the message a callback came from
func (b *Bot) editMarkup(cb *tgbotapi.CallbackQuery, markup tgbotapi.InlineKeyboardMarkup) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID, markup)
	if _, err := b.api.Request(edit); err != nil && !notModified(err) {
		b.logger.Warn().Err(err).Msg("failed to edit keyboard")
	}
}

func (b *Bot) deleteMessage(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(cb.Message.Chat.ID, cb.Message.MessageID)); err != nil {
		b.logger.Debug().Err(err).Msg("failed to delete message")
	}
}

func chatOf(cb *tgbotapi.CallbackQuery) int64 {
	if cb.Message != nil && cb.Message.Chat != nil {
		return cb.Message.Chat.ID
	}
	return cb.From.ID
}

func (b *Bot) onUnknown(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	b.send(htmlMessage(msg.Chat.ID, textUnknown))
	return nil
}

func (b *Bot) onCancel(ctx context.Context, msg *tgbotapi.Message, st *session.State) error {
	st.Reset()
	return b.sendMainMenu(ctx, msg.Chat.ID, msg.From.ID, textCancelled)
}

func (b *Bot) sendMainMenu(ctx context.Context, chatID, tgID int64, text string) error {
	hasProfile, err := b.svc.Profiles.HasProfile(ctx, tgID)
	if err != nil {
		return err
	}
	reply := htmlMessage(chatID, text)
	reply.ReplyMarkup = mainKeyboard(hasProfile, b.svc.Auth.IsAdmin(ctx, tgID))
	b.send(reply)
	return nil
}
