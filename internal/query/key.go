package query

import "strings"

// Key names. A per-user key carries the user id as its Param.
const (
	KeySchools           = "schools"
	KeyDevices           = "ecobox-devices"
	KeyAchievements      = "achievements"
	KeyUserAchievements  = "user-achievements"
	KeyChallenges        = "challenges"
	KeyUserChallenges    = "user-challenges"
	KeyStatistics        = "statistics"
	KeyLeaderboard       = "leaderboard"
	KeyEcoTips           = "eco-tips"
	KeyUserNotifications = "user-notifications"
	KeyUserProfile       = "user-profile"
	KeyQuizQuestions     = "quiz-questions"
)

// Key identifies one logical read. It is comparable and renders as
// "name" or "name:param".
type Key struct {
	Name  string
	Param string
}

func NewKey(name string, param ...string) Key {
	return Key{Name: name, Param: strings.Join(param, ":")}
}

func (k Key) String() string {
	if k.Param == "" {
		return k.Name
	}
	return k.Name + ":" + k.Param
}

// ParseKey is the inverse of String.
func ParseKey(s string) Key {
	name, param, _ := strings.Cut(s, ":")
	return Key{Name: name, Param: param}
}
