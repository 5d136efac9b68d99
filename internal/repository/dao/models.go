package dao

import "time"

type School struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name           string `gorm:"not null"`
	City           string `gorm:"not null"`
	Region         string `gorm:"not null"`
	TotalStudents  *int
	TotalClasses   *int
	TotalPapers    int `gorm:"not null;default:0"`
	MonthlyPapers  *int
	Ranking        *int
	CoordinatesLat *float64
	CoordinatesLng *float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type SchoolClass struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	SchoolID     string `gorm:"type:uuid;not null;index"`
	School       School `gorm:"foreignKey:SchoolID"`
	Name         string `gorm:"not null"`
	Grade        int    `gorm:"not null"`
	StudentCount *int
	TotalPapers  int `gorm:"not null;default:0"`
	TeacherID    *string
	TeacherName  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type EcoboxDevice struct {
	ID               string `gorm:"primaryKey"`
	SchoolID         string `gorm:"type:uuid;not null;index"`
	School           School `gorm:"foreignKey:SchoolID"`
	Location         string `gorm:"not null"`
	Status           string `gorm:"not null;default:offline"`
	TotalCapacity    int    `gorm:"not null;default:100;check:total_capacity >= 0"`
	CurrentCapacity  int    `gorm:"not null;default:0;check:current_capacity >= 0"`
	LastDataReceived *time.Time
	DailyCollections *int
	CoordinatesLat   *float64
	CoordinatesLng   *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Profile struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	Email       string `gorm:"unique;not null"`
	FirstName   string `gorm:"not null"`
	LastName    string `gorm:"not null"`
	Role        string `gorm:"not null;default:student"`
	AvatarURL   *string
	SchoolID    *string `gorm:"type:uuid;index"`
	ClassID     *string `gorm:"type:uuid;index"`
	TotalPapers int     `gorm:"not null;default:0"`
	JoinedDate  *time.Time
	LastActive  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Credential struct {
	ID           string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID       string  `gorm:"type:uuid;unique;not null"`
	Profile      Profile `gorm:"foreignKey:UserID"`
	Email        string  `gorm:"unique;not null"`
	PasswordHash string  `gorm:"not null"`
	CreatedAt    time.Time
}

type Achievement struct {
	ID                  string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name                string `gorm:"not null"`
	NameGeorgian        string `gorm:"not null"`
	Description         string `gorm:"not null"`
	DescriptionGeorgian string `gorm:"not null"`
	Icon                string `gorm:"not null"`
	Category            string `gorm:"not null"`
	Requirement         int    `gorm:"not null"`
	Rarity              string `gorm:"not null;default:common"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type UserAchievement struct {
	ID            string      `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID        string      `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement"`
	AchievementID string      `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement"`
	Achievement   Achievement `gorm:"foreignKey:AchievementID"`
	Progress      int         `gorm:"not null;default:0"`
	EarnedDate    *time.Time
}

type Challenge struct {
	ID                  string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Title               string    `gorm:"not null"`
	TitleGeorgian       string    `gorm:"not null"`
	Description         string    `gorm:"not null"`
	DescriptionGeorgian string    `gorm:"not null"`
	Type                string    `gorm:"not null"`
	Target              int       `gorm:"not null"`
	Reward              int       `gorm:"not null"`
	StartDate           time.Time `gorm:"not null"`
	EndDate             time.Time `gorm:"not null"`
	Participants        *int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type UserChallenge struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID      string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_challenge"`
	ChallengeID string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_challenge"`
	Challenge   Challenge `gorm:"foreignKey:ChallengeID"`
	Progress    int       `gorm:"not null;default:0"`
	Completed   bool      `gorm:"not null;default:false"`
	JoinedDate  *time.Time
}

type PaperSubmission struct {
	ID             string       `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID         string       `gorm:"type:uuid;not null;index"`
	EcoboxID       string       `gorm:"column:ecobox_id;not null;index"`
	Ecobox         EcoboxDevice `gorm:"foreignKey:EcoboxID"`
	PapersCount    int          `gorm:"not null;check:papers_count > 0"`
	SubmissionDate time.Time    `gorm:"not null;default:now()"`
	Verified       *bool
}

type Notification struct {
	ID              string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID          string `gorm:"type:uuid;not null;index"`
	Type            string `gorm:"not null"`
	Title           string `gorm:"not null"`
	TitleGeorgian   string `gorm:"not null"`
	Message         string `gorm:"not null"`
	MessageGeorgian string `gorm:"not null"`
	Read            bool   `gorm:"not null;default:false"`
	ActionURL       *string
	Icon            *string
	CreatedAt       time.Time
}

type EcoTip struct {
	ID              string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Title           string `gorm:"not null"`
	TitleGeorgian   string `gorm:"not null"`
	Content         string `gorm:"not null"`
	ContentGeorgian string `gorm:"not null"`
	Category        string `gorm:"not null"`
	Difficulty      string `gorm:"not null;default:easy"`
	Impact          string `gorm:"not null;default:medium"`
	Icon            string `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// QuizQuestion options are JSON arrays kept index-aligned across languages.
type QuizQuestion struct {
	ID                  string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Question            string `gorm:"not null"`
	QuestionGeorgian    string `gorm:"not null"`
	Options             string `gorm:"type:jsonb;not null"`
	OptionsGeorgian     string `gorm:"type:jsonb;not null"`
	CorrectAnswer       int    `gorm:"not null;check:correct_answer >= 0"`
	Explanation         string `gorm:"not null"`
	ExplanationGeorgian string `gorm:"not null"`
	Category            string `gorm:"not null;index"`
	Difficulty          string `gorm:"not null;default:medium"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type LeaderboardSnapshot struct {
	ID      string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Board   string    `gorm:"not null;index"`
	TakenAt time.Time `gorm:"not null;index"`
	Ranks   string    `gorm:"type:jsonb;not null"`
}
