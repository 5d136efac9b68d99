package domain

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// Identity is what the session provider vouches for.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func (i Identity) IsZero() bool {
	return i.UserID == ""
}

type SchoolRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city,omitempty"`
}

type ClassRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade int    `json:"grade"`
}

type UserProfile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Role      Role       `json:"role"`
	School    *SchoolRef `json:"school,omitempty"`
	Class     *ClassRef  `json:"class,omitempty"`
	AvatarURL *string    `json:"avatarUrl,omitempty"`

	// TotalPapers is maintained by the store from the submission ledger.
	TotalPapers int `json:"totalPapers"`

	Level                int     `json:"level"`
	LevelProgressPercent float64 `json:"levelProgressPercent"`
	Streak               int     `json:"streak"`

	Achievements []AchievementProgress `json:"achievements"`

	JoinedDate *time.Time `json:"joinedDate,omitempty"`
	LastActive *time.Time `json:"lastActive,omitempty"`
}

func (u UserProfile) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Credential is the login record kept next to a profile.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string
}
