package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weekender/weekender-bot/internal/auth"
	"github.com/weekender/weekender-bot/internal/common/database"
	"github.com/weekender/weekender-bot/internal/dating"
	"github.com/weekender/weekender-bot/internal/notification"
	"github.com/weekender/weekender-bot/internal/profile"
	"github.com/weekender/weekender-bot/internal/recommend"
	"github.com/weekender/weekender-bot/internal/session"
	"github.com/weekender/weekender-bot/internal/support"
)

// fakeAPI records everything the bot sends
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	groups   []tgbotapi.MediaGroupConfig
	photos   tgbotapi.UserProfilePhotos
	sendErr  error
	nextID   int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) SendMediaGroup(c tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.groups = append(f.groups, c)
	return make([]tgbotapi.Message, len(c.Media)), nil
}

func (f *fakeAPI) GetUserProfilePhotos(tgbotapi.UserProfilePhotosConfig) (tgbotapi.UserProfilePhotos, error) {
	return f.photos, nil
}

// messages returns the text messages sent to chatID
func (f *fakeAPI) messages(chatID int64) []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) lastText(chatID int64) string {
	msgs := f.messages(chatID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

func (f *fakeAPI) sentText(chatID int64, substr string) bool {
	for _, m := range f.messages(chatID) {
		if strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

// lastAnswer is the most recent callback answer
func (f *fakeAPI) lastAnswer() tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if cb, ok := f.requests[i].(tgbotapi.CallbackConfig); ok {
			return cb
		}
	}
	return tgbotapi.CallbackConfig{}
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent, f.requests, f.groups = nil, nil, nil
}

// memProfiles backs the real profile service
type memProfiles struct {
	mu    sync.Mutex
	users map[int64]*profile.Profile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{users: map[int64]*profile.Profile{}}
}

func strPtr(s string) *string { return &s }

func (m *memProfiles) UpsertUser(_ context.Context, tgID int64, firstName, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[tgID]
	if !ok {
		p = &profile.Profile{User: profile.User{ID: tgID, TgID: tgID, Points: 100}}
		m.users[tgID] = p
	}
	p.FirstName = strPtr(firstName)
	p.Username = strPtr(username)
	return nil
}

func (m *memProfiles) GetUser(_ context.Context, tgID int64) (*profile.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[tgID]
	if !ok {
		return nil, profile.ErrUserNotFound
	}
	u := p.User
	return &u, nil
}

func (m *memProfiles) GetProfile(_ context.Context, tgID int64) (*profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[tgID]
	if !ok {
		return nil, profile.ErrUserNotFound
	}
	c := *p
	return &c, nil
}

func (m *memProfiles) GetProfileByUsername(_ context.Context, username string) (*profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.users {
		if p.Username != nil && strings.EqualFold(*p.Username, username) {
			c := *p
			return &c, nil
		}
	}
	return nil, profile.ErrUserNotFound
}

func (m *memProfiles) SavePhotos(_ context.Context, tgID int64, photoIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[tgID]
	if !ok {
		return profile.ErrUserNotFound
	}
	p.PhotoIDs = photoIDs
	return nil
}

func (m *memProfiles) SaveProfile(_ context.Context, tgID int64, d *profile.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[tgID]
	if !ok {
		return profile.ErrUserNotFound
	}
	age := d.Age
	p.Year = &age
	p.Gender, p.Status, p.Target, p.District = strPtr(d.Gender), strPtr(d.Status), strPtr(d.Target), strPtr(d.District)
	p.Profession, p.About = strPtr(d.Profession), strPtr(d.About)
	p.Interests = append([]string(nil), d.Interests...)
	return nil
}

func (m *memProfiles) ReplaceInterests(_ context.Context, tgID int64, interests []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[tgID]
	if !ok {
		return profile.ErrUserNotFound
	}
	p.Interests = append([]string(nil), interests...)
	return nil
}

func (m *memProfiles) ListOptions(_ context.Context, c profile.Category) ([]profile.Option, error) {
	var opts []profile.Option
	for i, name := range database.SeedOptions[string(c)] {
		opts = append(opts, profile.Option{ID: int64(i + 1), Category: c, Name: name, Position: i})
	}
	return opts, nil
}

// complete stores a finished questionnaire for tgID
func (m *memProfiles) complete(tgID int64, target string) {
	_ = m.UpsertUser(context.Background(), tgID, "User", "user"+string(rune('a'+tgID%26)))
	_ = m.SaveProfile(context.Background(), tgID, &profile.Draft{
		Age: 30, Gender: "Женский", Status: profile.StatusSingle, Target: target,
		District: "ЦАО", Profession: "Дизайнер", Interests: []string{"Кино"},
	})
}

type fakeRecommend struct {
	recommend.Service
	mu        sync.Mutex
	events    []*recommend.Batch
	eventsErr error
	people    []*recommend.Batch
	resets    []recommend.PoolKind
}

func pop(queue *[]*recommend.Batch) *recommend.Batch {
	if len(*queue) == 0 {
		return &recommend.Batch{Excluded: recommend.NewExclusionSet()}
	}
	b := (*queue)[0]
	*queue = (*queue)[1:]
	return b
}

func (f *fakeRecommend) NextEvents(context.Context, int64, int) (*recommend.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return pop(&f.events), nil
}

func (f *fakeRecommend) NextPeople(context.Context, int64, []string, int) (*recommend.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pop(&f.people), nil
}

func (f *fakeRecommend) Reset(_ context.Context, _ int64, kind recommend.PoolKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, kind)
	return nil
}

type fakeDating struct {
	dating.Service
	toggles []dating.Kind
	result  *dating.ToggleResult
	err     error
	panics  bool
}

func (f *fakeDating) Toggle(_ context.Context, from, to int64, kind dating.Kind) (*dating.ToggleResult, error) {
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	f.toggles = append(f.toggles, kind)
	if f.result != nil {
		return f.result, nil
	}
	return &dating.ToggleResult{Kind: kind, Added: true}, nil
}

func (f *fakeDating) Snapshot(context.Context, int64) (*dating.Snapshot, error) {
	return &dating.Snapshot{}, nil
}

type fakeMailing struct {
	notification.Service
	mu        sync.Mutex
	count     int
	broadcast []notification.Mailing
	segments  []notification.Segment
}

func (f *fakeMailing) CountRecipients(context.Context, *notification.Segment) (int, error) {
	return f.count, nil
}

func (f *fakeMailing) Broadcast(_ context.Context, admin int64, seg *notification.Segment, m *notification.Mailing, progress notification.ProgressFunc) (*notification.Report, error) {
	f.mu.Lock()
	f.broadcast = append(f.broadcast, *m)
	f.segments = append(f.segments, *seg)
	f.mu.Unlock()

	progress(notification.Progress{Done: f.count, Total: f.count, Success: f.count})
	return &notification.Report{AdminTgID: admin, Total: f.count, Success: f.count}, nil
}

func (f *fakeMailing) sent() []notification.Mailing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification.Mailing(nil), f.broadcast...)
}

type fakeSupport struct {
	support.Service
	tickets map[int64]*support.Ticket
	replies []string
}

func (f *fakeSupport) UserMessage(_ context.Context, tgID int64, text string) (*support.Ticket, *support.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, support.ErrEmptyMessage
	}
	for _, t := range f.tickets {
		if t.TgID == tgID && t.IsActive {
			return t, &support.Message{TicketID: t.ID, Text: text, FromUser: true}, nil
		}
	}
	t := &support.Ticket{ID: int64(len(f.tickets) + 1), TgID: tgID, IsActive: true}
	f.tickets[t.ID] = t
	return t, &support.Message{TicketID: t.ID, Text: text, FromUser: true}, nil
}

func (f *fakeSupport) Ticket(_ context.Context, id int64) (*support.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, support.ErrTicketNotFound
	}
	return t, nil
}

func (f *fakeSupport) AdminReply(_ context.Context, id int64, text string) (*support.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok || !t.IsActive {
		return nil, support.ErrTicketClosed
	}
	f.replies = append(f.replies, text)
	return t, nil
}

func (f *fakeSupport) Close(_ context.Context, id int64) (*support.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok || !t.IsActive {
		return nil, support.ErrTicketClosed
	}
	t.IsActive = false
	return t, nil
}

type fakeAuth struct {
	auth.Service
	admins map[int64]bool
}

func (f *fakeAuth) IsAdmin(_ context.Context, tgID int64) bool { return f.admins[tgID] }

func (f *fakeAuth) Admins(context.Context) ([]*auth.Admin, error) {
	var out []*auth.Admin
	for id := range f.admins {
		out = append(out, &auth.Admin{TgID: id})
	}
	return out, nil
}

func (f *fakeAuth) IssueToken(_ context.Context, tgID int64, _ string) (*auth.TokenResponse, error) {
	if !f.admins[tgID] {
		return nil, auth.ErrNotAdmin
	}
	return &auth.TokenResponse{Token: "signed-token", ExpiresAt: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)}, nil
}

const (
	userID  int64 = 100
	adminID int64 = 900
)

type harness struct {
	bot       *Bot
	api       *fakeAPI
	profiles  *memProfiles
	recommend *fakeRecommend
	dating    *fakeDating
	mailing   *fakeMailing
	support   *fakeSupport
	sessions  session.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api:       &fakeAPI{},
		profiles:  newMemProfiles(),
		recommend: &fakeRecommend{},
		dating:    &fakeDating{},
		mailing:   &fakeMailing{count: 3},
		support:   &fakeSupport{tickets: map[int64]*support.Ticket{}},
		sessions:  session.NewMemoryStore(),
	}
	settings := profile.DefaultSettings()
	settings.MaxInterests = 3
	h.bot = NewBot(h.api, Services{
		Profiles:  profile.NewService(h.profiles, settings),
		Recommend: h.recommend,
		Dating:    h.dating,
		Mailing:   h.mailing,
		Support:   h.support,
		Auth:      &fakeAuth{admins: map[int64]bool{adminID: true}},
		Sessions:  h.sessions,
	}, DefaultConfig())
	return h
}

func (h *harness) text(from int64, text string) {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, FirstName: "Anna", UserName: "anna"},
		Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.IndexByte(text, ' '); i > 0 {
			length = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

func (h *harness) photo(from int64, fileID, caption string) {
	msg := &tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		Photo:     []tgbotapi.PhotoSize{{FileID: fileID + "_small"}, {FileID: fileID}},
		Caption:   caption,
	}
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

func (h *harness) press(from int64, data string) tgbotapi.CallbackConfig {
	cb := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from, UserName: "anna"},
		Message: &tgbotapi.Message{MessageID: 10, Chat: &tgbotapi.Chat{ID: from, Type: "private"}},
		Data:    data,
	}
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: cb})
	return h.api.lastAnswer()
}

func (h *harness) state(t *testing.T, tgID int64) *session.State {
	t.Helper()
	st, err := h.sessions.Get(context.Background(), tgID)
	require.NoError(t, err)
	return st
}

func TestBot_Start(t *testing.T) {
	h := newHarness(t)
	h.api.photos = tgbotapi.UserProfilePhotos{
		TotalCount: 2,
		Photos: [][]tgbotapi.PhotoSize{
			{{FileID: "a_small"}, {FileID: "a_big"}},
			{{FileID: "b_big"}},
		},
	}

	h.text(userID, "/start")

	p, err := h.profiles.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_big", "b_big"}, []string(p.PhotoIDs))
	assert.Equal(t, "anna", *p.Username)

	msgs := h.api.messages(userID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Привет, Anna!")
	kb, ok := msgs[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, btnStart, kb.Keyboard[0][0].Text)
}

func TestBot_StartShowsAdminButton(t *testing.T) {
	h := newHarness(t)
	h.profiles.complete(adminID, profile.TargetFriendship)

	h.text(adminID, "/start")

	kb := h.api.messages(adminID)[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	last := kb.Keyboard[len(kb.Keyboard)-1]
	assert.Equal(t, btnAdmin, last[0].Text)
	assert.Equal(t, btnResidents, kb.Keyboard[0][0].Text)
}

func TestBot_Questionnaire(t *testing.T) {
	h := newHarness(t)
	h.text(userID, "/start")
	h.text(userID, btnStart)
	assert.Equal(t, session.StepAge, h.state(t, userID).Step)
	assert.Contains(t, h.recommend.resets, recommend.PoolEvents)

	h.text(userID, "двадцать")
	assert.Equal(t, textAgeNotNumber, h.api.lastText(userID))

	h.text(userID, "17")
	assert.Equal(t, "❌ Пожалуйста, введите возраст от 18 до 60 лет", h.api.lastText(userID))
	assert.Equal(t, session.StepAge, h.state(t, userID).Step)

	h.text(userID, "25")
	assert.Equal(t, textAskGender, h.api.lastText(userID))

	ans := h.press(userID, cbGender+"Женский")
	assert.Equal(t, "Пол: Женский", ans.Text)
	assert.Equal(t, session.StepStatus, h.state(t, userID).Step)

	h.press(userID, cbStatus+profile.StatusSingle)
	h.press(userID, cbTarget+profile.TargetRelationship)
	h.press(userID, cbDistrict+"ЦАО")
	assert.Equal(t, textAskJob, h.api.lastText(userID))

	h.text(userID, strings.Repeat("я", 51))
	assert.Equal(t, textJobTooLong, h.api.lastText(userID))
	h.text(userID, "Дизайнер")
	h.text(userID, "Люблю кино")
	assert.Equal(t, session.StepInterests, h.state(t, userID).Step)

	ans = h.press(userID, cbInterestsDone)
	assert.Equal(t, textNoInterests, ans.Text)
	assert.True(t, ans.ShowAlert)

	h.press(userID, cbInterest+"Кино")
	h.press(userID, cbInterest+"Театр")
	h.press(userID, cbInterest+"Театр")

	h.recommend.events = []*recommend.Batch{{Candidates: []recommend.Candidate{
		{ID: 1, Kind: recommend.PoolEvents, Description: "Кинопоказ", URL: "https://example.com/1"},
	}}}
	h.press(userID, cbInterestsDone)

	p, err := h.profiles.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, p.Year)
	assert.Equal(t, 25, *p.Year)
	assert.Equal(t, "Женский", *p.Gender)
	assert.Equal(t, "Дизайнер", *p.Profession)
	assert.Equal(t, []string{"Кино"}, []string(p.Interests))

	assert.True(t, h.api.sentText(userID, textSaved))
	assert.True(t, h.api.sentText(userID, "Кинопоказ"))
	assert.Equal(t, session.StepIdle, h.state(t, userID).Step)
}

func TestBot_InterestsDoneWhenEventsFail(t *testing.T) {
	h := newHarness(t)
	h.text(userID, "/start")

	ctx := context.Background()
	require.NoError(t, h.sessions.Save(ctx, userID, &session.State{
		Step: session.StepInterests,
		Draft: profile.Draft{
			Age:        25,
			Gender:     "Женский",
			Status:     profile.StatusSingle,
			Target:     profile.TargetFriendship,
			District:   "ЦАО",
			Profession: "Дизайнер",
			Interests:  []string{"Кино"},
		},
	}))
	h.recommend.eventsErr = errors.New("connection reset")

	h.press(userID, cbInterestsDone)

	p, err := h.profiles.GetProfile(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, p.Year)
	assert.True(t, h.api.sentText(userID, textSaved))
	assert.Equal(t, session.StepIdle, h.state(t, userID).Step)
}

func TestBot_SingleChoiceToggles(t *testing.T) {
	h := newHarness(t)
	h.text(userID, "/start")
	h.text(userID, btnStart)
	h.text(userID, "30")

	h.press(userID, cbGender+"Мужской")
	// a second press on the previous question clears it without moving on
	ans := h.press(userID, cbGender+"Мужской")
	assert.Equal(t, "Пол: сброшен", ans.Text)
	st := h.state(t, userID)
	assert.Empty(t, st.Draft.Gender)
	assert.Equal(t, session.StepStatus, st.Step)

	ans = h.press(userID, cbGender+"Неизвестно")
	assert.Equal(t, textBadData, ans.Text)
}

func TestBot_InterestLimit(t *testing.T) {
	h := newHarness(t)
	h.profiles.complete(userID, profile.TargetFriendship)

	h.press(userID, cbEditEvents)
	st := h.state(t, userID)
	assert.Equal(t, session.EditOnlyInterests, st.EditMode)
	assert.Equal(t, []string{"Кино"}, st.Draft.Interests)

	h.press(userID, cbInterest+"Театр")
	h.press(userID, cbInterest+"Танцы")
	ans := h.press(userID, cbInterest+"Спорт")
	assert.Equal(t, "❌ Слишком много интересов, выберите не больше 3", ans.Text)
	assert.Len(t, h.state(t, userID).Draft.Interests, 3)

	h.press(userID, cbInterestsDone)
	p, _ := h.profiles.GetProfile(context.Background(), userID)
	assert.Equal(t, []string{"Кино", "Театр", "Танцы"}, []string(p.Interests))
	assert.True(t, h.api.sentText(userID, textInterestsOK))
}

func TestBot_Events(t *testing.T) {
	h := newHarness(t)
	h.profiles.complete(userID, profile.TargetFriendship)

	t.Run("no matches", func(t *testing.T) {
		h.api.reset()
		h.text(userID, btnRepeat)
		assert.Contains(t, h.api.lastText(userID), "@weekender_chat")
	})

	t.Run("all shown", func(t *testing.T) {
		h.api.reset()
		h.recommend.resets = nil
		h.recommend.events = []*recommend.Batch{{Exhausted: true}}
		h.press(userID, cbEventsMore)
		assert.Equal(t, textEventsSeenAll, h.api.lastText(userID))
		assert.Equal(t, []recommend.PoolKind{recommend.PoolEvents}, h.recommend.resets)
	})

	t.Run("page", func(t *testing.T) {
		h.api.reset()
		h.recommend.events = []*recommend.Batch{{Candidates: []recommend.Candidate{
			{ID: 1, Description: "one", URL: "u1"},
			{ID: 2, Description: "two", URL: "u2"},
		}}}
		h.text(userID, btnRepeat)
		msgs := h.api.messages(userID)
		require.Len(t, msgs, 2)
		assert.Nil(t, msgs[0].ReplyMarkup)
		assert.NotNil(t, msgs[1].ReplyMarkup)
		assert.Equal(t, "two\n\nu2", msgs[1].Text)
	})
}

func TestBot_People(t *testing.T) {
	h := newHarness(t)
	h.profiles.complete(userID, profile.TargetRelationship)

	h.press(userID, cbFindPeople)
	assert.Equal(t, session.StepAgeRanges, h.state(t, userID).Step)

	ans := h.press(userID, cbAgeDone)
	assert.Equal(t, textNoAgeRanges, ans.Text)

	h.press(userID, cbAgeRange+"25-34")
	h.recommend.people = []*recommend.Batch{{Candidates: []recommend.Candidate{
		{ID: 42, Kind: recommend.PoolUsers, FirstName: "Олег", Username: "oleg", PhotoIDs: []string{"p1"}},
	}}}
	h.api.reset()
	h.press(userID, cbAgeDone)

	assert.True(t, h.api.sentText(userID, textSearching))
	assert.True(t, h.api.sentText(userID, "Олег"))
	assert.Equal(t, textMorePeople, h.api.lastText(userID))

	var card tgbotapi.MessageConfig
	for _, m := range h.api.messages(userID) {
		if strings.Contains(m.Text, "Олег") {
			card = m
		}
	}
	kb := card.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, cbLikeToggle+"42", *kb.InlineKeyboard[0][0].CallbackData)

	// the next page is empty: the pool restarts
	h.recommend.resets = nil
	h.press(userID, cbShowMorePeople)
	assert.Equal(t, textNoPeople, h.api.lastText(userID))
	assert.Equal(t, []recommend.PoolKind{recommend.PoolUsers}, h.recommend.resets)
}

func TestBot_ReactionToggle(t *testing.T) {
	h := newHarness(t)
	h.profiles.complete(userID, profile.TargetRelationship)
	h.profiles.complete(42, profile.TargetRelationship)

	ans := h.press(userID, cbLikeToggle+"42")
	assert.Equal(t, textLikeOn, ans.Text)
	assert.Equal(t, []dating.Kind{dating.KindLike}, h.dating.toggles)

	h.dating.result = &dating.ToggleResult{Kind: dating.KindFriend, Added: true, Mutual: true}
	ans = h.press(userID, cbFriendTog+"42")
	assert.Equal(t, textMatchFriend, ans.Text)

	h.dating.err = dating.ErrSelfReaction
	ans = h.press(userID, cbLikeToggle+"100")
	assert.Equal(t, textSelfReaction, ans.Text)

	ans = h.press(userID, cbLikeToggle+"abc")
	assert.Equal(t, textBadData, ans.Text)
}

func TestBot_PanicIsContained(t *testing.T) {
	h := newHarness(t)
	h.dating.panics = true

	assert.NotPanics(t, func() {
		h.press(userID, cbLikeToggle+"42")
	})
	assert.Equal(t, textError, h.api.lastText(userID))
}

func TestBot_AdminOnly(t *testing.T) {
	h := newHarness(t)

	ans := h.press(userID, cbMassSend)
	assert.Equal(t, textNoRights, ans.Text)
	assert.True(t, ans.ShowAlert)

	h.text(userID, btnAdmin)
	assert.Equal(t, textNoRights, h.api.lastText(userID))

	h.text(adminID, "/admin")
	assert.Equal(t, textAdminMenu, h.api.lastText(adminID))

	h.text(adminID, "/token")
	assert.Contains(t, h.api.lastText(adminID), "signed-token")
	assert.Contains(t, h.api.lastText(adminID), "01.05.2024 10:30")
}

func TestBot_MailingWizard(t *testing.T) {
	h := newHarness(t)

	h.press(adminID, cbMassSend)
	assert.Equal(t, session.StepMailingAge, h.state(t, adminID).Step)

	h.press(adminID, cbSelectAge+"25-34")
	h.press(adminID, cbDoneAge)
	h.press(adminID, cbSelectDistrict+"ЦАО")
	h.press(adminID, cbDoneDistrict)
	h.press(adminID, cbDoneTarget)
	h.press(adminID, cbSelectGender+"Женский")
	h.press(adminID, cbDoneGender)

	assert.Contains(t, h.api.lastText(adminID), "Получателей: <b>3</b>")
	st := h.state(t, adminID)
	require.NotNil(t, st.Mailing)
	assert.Equal(t, []string{"25-34"}, st.Mailing.Segment.AgeRanges)
	assert.Equal(t, []string{"ЦАО"}, st.Mailing.Segment.Districts)
	assert.Empty(t, st.Mailing.Segment.Targets)

	ans := h.press(adminID, cbDoneMailing)
	assert.Equal(t, textBadData, ans.Text)

	h.press(adminID, cbAddMessage)
	ans = h.press(adminID, cbDoneMailing)
	assert.Equal(t, textMailingEmpty, ans.Text)

	h.text(adminID, "Вечеринка в субботу")
	h.photo(adminID, "poster", "")
	st = h.state(t, adminID)
	assert.Equal(t, "Вечеринка в субботу", st.Mailing.Mailing.Text)
	require.Len(t, st.Mailing.Mailing.Media, 1)
	assert.Equal(t, "poster", st.Mailing.Mailing.Media[0].FileID)

	h.api.reset()
	h.press(adminID, cbDoneMailing)
	assert.True(t, h.api.sentText(adminID, textPreview))
	assert.Equal(t, session.StepMailingPreview, h.state(t, adminID).Step)

	h.press(adminID, cbStartMailing)
	assert.Eventually(t, func() bool {
		return h.api.sentText(adminID, "Рассылка завершена")
	}, time.Second, 10*time.Millisecond)

	sent := h.mailing.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Вечеринка в субботу", sent[0].Text)
	assert.Equal(t, session.StepIdle, h.state(t, adminID).Step)
}

func TestBot_MailingToAll(t *testing.T) {
	h := newHarness(t)
	h.mailing.count = 0

	h.press(adminID, cbMassSendAll)
	assert.Equal(t, textNoRecipients, h.api.lastText(adminID))
	assert.Nil(t, h.state(t, adminID).Mailing)
}

func TestBot_Support(t *testing.T) {
	h := newHarness(t)
	h.profiles.complete(userID, profile.TargetFriendship)

	h.text(userID, btnSupport)
	assert.Equal(t, session.StepSupport, h.state(t, userID).Step)

	h.text(userID, "Не вижу <мероприятий>")
	assert.Equal(t, textSupportSent, h.api.lastText(userID))

	relay := h.api.messages(adminID)
	require.Len(t, relay, 1)
	assert.Contains(t, relay[0].Text, "Обращение #1")
	assert.Contains(t, relay[0].Text, "&lt;мероприятий&gt;")

	h.press(adminID, cbSupportReply+"1")
	assert.Equal(t, session.StepSupportReply, h.state(t, adminID).Step)

	h.text(adminID, "Уже чиним")
	assert.Equal(t, textReplySent, h.api.lastText(adminID))
	assert.Equal(t, []string{"Уже чиним"}, h.support.replies)
	assert.Contains(t, h.api.lastText(userID), "Уже чиним")

	ans := h.press(adminID, cbSupportClose+"1")
	assert.Equal(t, "✅ Обращение #1 закрыто", ans.Text)
	assert.Equal(t, textSupportClosed, h.api.lastText(userID))
	assert.Equal(t, session.StepIdle, h.state(t, userID).Step)

	ans = h.press(adminID, cbSupportClose+"1")
	assert.Equal(t, textTicketClosed, ans.Text)
}

func TestBot_Run(t *testing.T) {
	h := newHarness(t)
	updates := make(chan tgbotapi.Update, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.bot.Run(ctx, updates) }()

	updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID, Type: "private"},
		Text: "привет",
	}}
	assert.Eventually(t, func() bool { return h.api.lastText(userID) == textUnknown }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

// blockingSessions holds Get for one user until released
type blockingSessions struct {
	session.Store
	blocked int64
	release chan struct{}
}

func (s *blockingSessions) Get(ctx context.Context, tgID int64) (*session.State, error) {
	if tgID == s.blocked {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.Store.Get(ctx, tgID)
}

func TestBot_RunUsersInParallel(t *testing.T) {
	const slowUser, fastUser int64 = 101, 102

	h := newHarness(t)
	sessions := &blockingSessions{Store: h.sessions, blocked: slowUser, release: make(chan struct{})}
	config := DefaultConfig()
	config.Workers = 2
	bot := NewBot(h.api, Services{
		Profiles:  profile.NewService(h.profiles, profile.DefaultSettings()),
		Recommend: h.recommend,
		Dating:    h.dating,
		Mailing:   h.mailing,
		Support:   h.support,
		Auth:      &fakeAuth{admins: map[int64]bool{}},
		Sessions:  sessions,
	}, config)
	require.NotEqual(t, workerFor(privateText(slowUser, "a"), 2), workerFor(privateText(fastUser, "b"), 2))

	updates := make(chan tgbotapi.Update, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx, updates) }()

	updates <- privateText(slowUser, "привет")
	updates <- privateText(fastUser, "привет")

	assert.Eventually(t, func() bool { return h.api.lastText(fastUser) == textUnknown }, time.Second, 10*time.Millisecond)
	assert.Empty(t, h.api.messages(slowUser))

	close(sessions.release)
	assert.Eventually(t, func() bool { return h.api.lastText(slowUser) == textUnknown }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestWorkerFor(t *testing.T) {
	msg := privateText(userID, "привет")
	cb := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{From: &tgbotapi.User{ID: userID}}}

	assert.Equal(t, workerFor(msg, 8), workerFor(cb, 8))
	assert.Equal(t, 0, workerFor(tgbotapi.Update{}, 8))
	for _, id := range []int64{1, 7, 123456789, -100500} {
		w := workerFor(privateText(id, "x"), 8)
		assert.GreaterOrEqual(t, w, 0)
		assert.Less(t, w, 8)
	}
}

func privateText(from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: from},
		Chat: &tgbotapi.Chat{ID: from, Type: "private"},
		Text: text,
	}}
}

func TestBot_IgnoresGroupChats(t *testing.T) {
	h := newHarness(t)
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: -5, Type: "supergroup"},
		Text: "/start",
	}})
	assert.Empty(t, h.api.messages(-5))
}
