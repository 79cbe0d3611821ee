// internal/profile/models.go

package profile

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Category is the typed form of an option category row
type Category string

const (
	CategoryGender   Category = "gender"
	CategoryStatus   Category = "status"
	CategoryTarget   Category = "target"
	CategoryDistrict Category = "district"
	CategoryInterest Category = "interest"
	CategoryAgeRange Category = "age_ranges"
)

var categories = []Category{
	CategoryGender, CategoryStatus, CategoryTarget,
	CategoryDistrict, CategoryInterest, CategoryAgeRange,
}

// ParseCategory maps a stored category name to its enum value
func ParseCategory(name string) (Category, error) {
	for _, c := range categories {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// Single reports whether at most one option of the category may be selected
func (c Category) Single() bool {
	return c != CategoryInterest && c != CategoryAgeRange
}

// Well-known option values the bot branches on
const (
	TargetFriendship   = "Дружба"
	TargetRelationship = "Отношения"
	StatusSingle       = "Свободен"
)

// Option is one selectable value of a category
type Option struct {
	ID       int64    `db:"id" json:"id"`
	Category Category `db:"category" json:"category"`
	Name     string   `db:"name" json:"name"`
	Position int      `db:"position" json:"position"`
}

// User is the users table row
type User struct {
	ID         int64          `db:"id" json:"-"`
	TgID       int64          `db:"tg_id" json:"tg_id"`
	FirstName  *string        `db:"first_name" json:"first_name,omitempty"`
	Username   *string        `db:"username" json:"username,omitempty"`
	Year       *int           `db:"year" json:"age,omitempty"`
	Profession *string        `db:"profession" json:"profession,omitempty"`
	About      *string        `db:"about" json:"about,omitempty"`
	Points     int            `db:"points" json:"points"`
	TotalLikes int            `db:"total_likes" json:"total_likes"`
	IsAdmin    bool           `db:"is_admin" json:"is_admin"`
	PhotoIDs   pq.StringArray `db:"photo_ids" json:"photo_ids"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// Profile is a user together with the selected options
type Profile struct {
	User
	Gender    *string        `db:"gender" json:"gender,omitempty"`
	Status    *string        `db:"status" json:"status,omitempty"`
	Target    *string        `db:"target" json:"target,omitempty"`
	District  *string        `db:"district" json:"district,omitempty"`
	Interests pq.StringArray `db:"interests" json:"interests"`
}

// Complete is true once the questionnaire has been submitted
func (p *Profile) Complete() bool {
	return p.Year != nil
}

// Draft collects questionnaire answers until they are submitted
type Draft struct {
	Age        int      `json:"age" validate:"required,gte=1,lte=120"`
	Gender     string   `json:"gender" validate:"required"`
	Status     string   `json:"status" validate:"required"`
	Target     string   `json:"target" validate:"required"`
	District   string   `json:"district" validate:"required"`
	Profession string   `json:"profession" validate:"required,max=50"`
	About      string   `json:"about" validate:"max=1000"`
	Interests  []string `json:"interests" validate:"required,min=1,dive,required"`
}

// DraftFromProfile pre-fills a draft so editing starts from saved answers
func DraftFromProfile(p *Profile) Draft {
	d := Draft{Interests: append([]string(nil), p.Interests...)}
	if p.Year != nil {
		d.Age = *p.Year
	}
	d.Gender = deref(p.Gender)
	d.Status = deref(p.Status)
	d.Target = deref(p.Target)
	d.District = deref(p.District)
	d.Profession = deref(p.Profession)
	d.About = deref(p.About)
	return d
}

// SetSingle sets a single-choice answer. Choosing the current value clears it.
// It returns the value now stored.
func (d *Draft) SetSingle(c Category, value string) (string, error) {
	var field *string
	switch c {
	case CategoryGender:
		field = &d.Gender
	case CategoryStatus:
		field = &d.Status
	case CategoryTarget:
		field = &d.Target
	case CategoryDistrict:
		field = &d.District
	default:
		return "", fmt.Errorf("%w: %s is not single-choice", ErrUnknownCategory, c)
	}

	if *field == value {
		*field = ""
	} else {
		*field = value
	}
	return *field, nil
}

// ToggleInterest adds or removes an interest, reporting whether it is now selected
func (d *Draft) ToggleInterest(name string) bool {
	var selected bool
	d.Interests, selected = Toggle(d.Interests, name)
	return selected
}

// Toggle adds value to list or removes it when present
func Toggle(list []string, value string) ([]string, bool) {
	out := make([]string, 0, len(list)+1)
	found := false
	for _, v := range list {
		if v == value {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, value)
	}
	return out, !found
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
