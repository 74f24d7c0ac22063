package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PseudoUser is an anonymous identity minted by a client and registered lazily.
type PseudoUser struct {
	bun.BaseModel `bun:"table:pseudo_user,alias:pu"`

	ID         uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	LastActive time.Time `bun:"last_active,notnull" json:"last_active"`
}

// Gender is stored as a single letter.
type Gender string

const (
	GenderMale    Gender = "m"
	GenderFemale  Gender = "f"
	GenderUnknown Gender = "u"
)

// Valid reports whether g is one of the stored values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderUnknown:
		return true
	}
	return false
}

// BaseUser is a registered user. The id is shared with the pseudo user that
// was upgraded through the identity-provider webhook.
type BaseUser struct {
	bun.BaseModel `bun:"table:base_user,alias:bu"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Username      string     `bun:"username,notnull" json:"username"`
	Auth0ID       *string    `bun:"auth0_id,unique" json:"auth0_id,omitempty"`
	Gender        Gender     `bun:"gender,notnull" json:"gender"`
	Email         string     `bun:"email,notnull" json:"email"`
	EmailVerified bool       `bun:"email_verified,notnull" json:"email_verified"`
	FamilyName    string     `bun:"family_name,notnull" json:"family_name"`
	GivenName     string     `bun:"given_name,notnull" json:"given_name"`
	BirthDate     *time.Time `bun:"birth_date" json:"birth_date,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// UserPatch carries the fields a user may change. Nil means unchanged.
type UserPatch struct {
	Username   *string    `json:"username,omitempty" validate:"omitempty,username"`
	Gender     *Gender    `json:"gender,omitempty" validate:"omitempty,oneof=m f u"`
	FamilyName *string    `json:"family_name,omitempty" validate:"omitempty,personname"`
	GivenName  *string    `json:"given_name,omitempty" validate:"omitempty,personname"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Gender == nil && p.FamilyName == nil &&
		p.GivenName == nil && p.BirthDate == nil
}

// RecentActivity counts pseudo users seen in the current calendar windows (UTC).
type RecentActivity struct {
	ThisMonthUsers int `json:"this_month_users"`
	ThisWeekUsers  int `json:"this_week_users"`
	TodaysUsers    int `json:"todays_users"`
}

// AverageActivity is the mean number of active pseudo users per bucket over
// a trailing window.
type AverageActivity struct {
	AvgMonthUsers float64 `json:"avg_month_users"`
	AvgWeekUsers  float64 `json:"avg_week_users"`
	AvgDailyUsers float64 `json:"avg_daily_users"`
}

// ActivityStats is the admin dashboard summary.
type ActivityStats struct {
	TotalGameCount int             `json:"total_game_count"`
	TotalUserCount int             `json:"total_user_count"`
	Recent         RecentActivity  `json:"recent"`
	Average        AverageActivity `json:"average"`
}
