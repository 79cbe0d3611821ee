package profile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	profiles  map[int64]*Profile
	options   map[Category][]Option
	photos    map[int64][]string
	saved     map[int64]*Draft
	interests map[int64][]string
	failWith  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		profiles:  map[int64]*Profile{},
		options:   map[Category][]Option{},
		photos:    map[int64][]string{},
		saved:     map[int64]*Draft{},
		interests: map[int64][]string{},
	}
}

func (f *fakeRepo) UpsertUser(_ context.Context, tgID int64, firstName, username string) error {
	if f.failWith != nil {
		return f.failWith
	}
	p, ok := f.profiles[tgID]
	if !ok {
		p = &Profile{User: User{TgID: tgID, Points: 100}}
		f.profiles[tgID] = p
	}
	p.FirstName = &firstName
	p.Username = &username
	return nil
}

func (f *fakeRepo) GetUser(_ context.Context, tgID int64) (*User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	p, ok := f.profiles[tgID]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := p.User
	return &u, nil
}

func (f *fakeRepo) GetProfile(_ context.Context, tgID int64) (*Profile, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	p, ok := f.profiles[tgID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return p, nil
}

func (f *fakeRepo) GetProfileByUsername(_ context.Context, username string) (*Profile, error) {
	for _, p := range f.profiles {
		if p.Username != nil && *p.Username == username {
			return p, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepo) SavePhotos(_ context.Context, tgID int64, photoIDs []string) error {
	f.photos[tgID] = photoIDs
	return nil
}

func (f *fakeRepo) SaveProfile(_ context.Context, tgID int64, d *Draft) error {
	p, ok := f.profiles[tgID]
	if !ok {
		return ErrUserNotFound
	}
	age := d.Age
	p.Year = &age
	f.saved[tgID] = d
	return nil
}

func (f *fakeRepo) ReplaceInterests(_ context.Context, tgID int64, interests []string) error {
	f.interests[tgID] = interests
	return nil
}

func (f *fakeRepo) ListOptions(_ context.Context, c Category) ([]Option, error) {
	return f.options[c], nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func completeDraft() *Draft {
	return &Draft{
		Age:        25,
		Gender:     "Женский",
		Status:     "Свободен",
		Target:     "Дружба",
		District:   "ЦАО",
		Profession: "Дизайнер",
		Interests:  []string{"Кино"},
	}
}

func TestService_ParseAge(t *testing.T) {
	svc := NewService(newFakeRepo(), DefaultSettings())

	tests := []struct {
		input   string
		want    int
		wantErr error
	}{
		{"18", 18, nil},
		{" 60 ", 60, nil},
		{"35", 35, nil},
		{"17", 0, ErrAgeOutOfRange},
		{"61", 0, ErrAgeOutOfRange},
		{"abc", 0, ErrAgeNotNumber},
		{"-20", 0, ErrAgeNotNumber},
		{"2 5", 0, ErrAgeNotNumber},
		{"", 0, ErrAgeNotNumber},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := svc.ParseAge(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Register(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Settings{MinAge: 18, MaxAge: 60, MaxPhotos: 2})
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, 1, "Аня", "anya", []string{"a", "b", "c"}))
	assert.Equal(t, []string{"a", "b"}, repo.photos[1])

	has, err := svc.HasProfile(ctx, 1)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, svc.Register(ctx, 2, "Петя", "", nil))
	_, ok := repo.photos[2]
	assert.False(t, ok, "no photos means no photo update")
}

func TestService_HasProfile(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles[1] = &Profile{User: User{TgID: 1, Year: intPtr(30)}}
	svc := NewService(repo, DefaultSettings())

	has, err := svc.HasProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = svc.HasProfile(context.Background(), 404)
	require.NoError(t, err)
	assert.False(t, has)

	repo.failWith = errors.New("connection refused")
	_, err = svc.HasProfile(context.Background(), 1)
	assert.Error(t, err)
}

func TestService_SaveProfile(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, DefaultSettings())
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, 7, "Аня", "anya", nil))

	t.Run("no interests", func(t *testing.T) {
		d := completeDraft()
		d.Interests = nil
		assert.ErrorIs(t, svc.SaveProfile(ctx, 7, d), ErrNoInterests)
	})

	t.Run("age out of range", func(t *testing.T) {
		d := completeDraft()
		d.Age = 70
		assert.ErrorIs(t, svc.SaveProfile(ctx, 7, d), ErrAgeOutOfRange)
	})

	t.Run("missing answer", func(t *testing.T) {
		d := completeDraft()
		d.District = ""
		assert.ErrorIs(t, svc.SaveProfile(ctx, 7, d), ErrDraftIncomplete)
	})

	t.Run("complete", func(t *testing.T) {
		require.NoError(t, svc.SaveProfile(ctx, 7, completeDraft()))
		has, err := svc.HasProfile(ctx, 7)
		require.NoError(t, err)
		assert.True(t, has)
	})
}

func TestService_FindByUsername(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles[1] = &Profile{User: User{TgID: 1, Username: strPtr("anya"), Year: intPtr(25)}}
	repo.profiles[2] = &Profile{User: User{TgID: 2, Username: strPtr("draft")}}
	svc := NewService(repo, DefaultSettings())
	ctx := context.Background()

	p, err := svc.FindByUsername(ctx, " @anya ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.TgID)

	_, err = svc.FindByUsername(ctx, "draft")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = svc.FindByUsername(ctx, "@")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_StartDraft(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles[1] = &Profile{
		User:      User{TgID: 1, Year: intPtr(31), Profession: strPtr("Юрист")},
		Gender:    strPtr("Мужской"),
		District:  strPtr("САО"),
		Interests: []string{"Спорт", "Кино"},
	}
	svc := NewService(repo, DefaultSettings())

	d, err := svc.StartDraft(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 31, d.Age)
	assert.Equal(t, "Мужской", d.Gender)
	assert.Equal(t, "САО", d.District)
	assert.Equal(t, "Юрист", d.Profession)
	assert.Equal(t, []string{"Спорт", "Кино"}, d.Interests)

	d, err = svc.StartDraft(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, Draft{}, d)
}

func TestService_UpdateInterests(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, DefaultSettings())

	assert.ErrorIs(t, svc.UpdateInterests(context.Background(), 1, nil), ErrNoInterests)
	require.NoError(t, svc.UpdateInterests(context.Background(), 1, []string{"Театр"}))
	assert.Equal(t, []string{"Театр"}, repo.interests[1])

	limited := NewService(repo, Settings{MinAge: 18, MaxAge: 60, MaxPhotos: 10, MaxInterests: 1})
	err := limited.UpdateInterests(context.Background(), 1, []string{"Театр", "Кино"})
	assert.ErrorIs(t, err, ErrTooManyInterests)
}

func TestDraft_Toggles(t *testing.T) {
	var d Draft

	v, err := d.SetSingle(CategoryGender, "Женский")
	require.NoError(t, err)
	assert.Equal(t, "Женский", v)

	v, err = d.SetSingle(CategoryGender, "Женский")
	require.NoError(t, err)
	assert.Empty(t, v, "second click clears the answer")

	_, err = d.SetSingle(CategoryInterest, "Кино")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	assert.True(t, d.ToggleInterest("Кино"))
	assert.True(t, d.ToggleInterest("Спорт"))
	assert.False(t, d.ToggleInterest("Кино"))
	assert.Equal(t, []string{"Спорт"}, d.Interests)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("age_ranges")
	require.NoError(t, err)
	assert.Equal(t, CategoryAgeRange, c)
	assert.False(t, c.Single())
	assert.True(t, CategoryDistrict.Single())

	_, err = ParseCategory("zodiac")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func passthrough(next http.Handler) http.Handler { return next }

func TestHandler_GetUserProfile(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles[5] = &Profile{User: User{TgID: 5, Year: intPtr(40)}}
	router := mux.NewRouter()
	RegisterRoutes(router, NewHandler(NewService(repo, DefaultSettings())), passthrough)

	tests := []struct {
		path string
		code int
	}{
		{"/api/v1/admin/users/5", http.StatusOK},
		{"/api/v1/admin/users/6", http.StatusNotFound},
		{"/api/v1/admin/users/search?username=nobody", http.StatusNotFound},
		{"/api/v1/admin/users/search", http.StatusBadRequest},
		{"/api/v1/admin/options/zodiac", http.StatusBadRequest},
		{"/api/v1/admin/options/district", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
