// Package mapper turns raw store rows into domain entities. Every function is
// pure: the same row always yields the same entity or the same error.
package mapper

import (
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

// Aliases under which joined sub-rows are embedded.
const (
	JoinDevices     = "ecobox_devices"
	JoinClasses     = "school_classes"
	JoinSchool      = "schools"
	JoinClass       = "school_classes"
	JoinAchievement = "achievements"
	JoinChallenge   = "challenges"
)

func School(row rowstore.Row) (domain.School, error) {
	r := read("school", row)
	s := domain.School{
		ID:            r.str("id"),
		Name:          r.str("name"),
		City:          r.str("city"),
		Region:        r.str("region"),
		TotalStudents: r.optInt("total_students"),
		TotalClasses:  r.optInt("total_classes"),
		TotalPapers:   r.count("total_papers"),
		MonthlyPapers: r.optInt("monthly_papers"),
		Ranking:       r.optInt("ranking"),
	}
	devices := r.many(JoinDevices)
	classes := r.many(JoinClasses)
	if r.err != nil {
		return domain.School{}, r.err
	}

	s.EcoBoxDevices = make([]domain.EcoBoxDevice, 0, len(devices))
	for i, d := range devices {
		device, err := Device(d)
		if err != nil {
			return domain.School{}, fmt.Errorf("school %s device %d -> %w", s.ID, i, err)
		}
		s.EcoBoxDevices = append(s.EcoBoxDevices, device)
	}

	s.Classes = make([]domain.SchoolClass, 0, len(classes))
	for i, c := range classes {
		class, err := SchoolClass(c)
		if err != nil {
			return domain.School{}, fmt.Errorf("school %s class %d -> %w", s.ID, i, err)
		}
		s.Classes = append(s.Classes, class)
	}

	return s, nil
}

func SchoolClass(row rowstore.Row) (domain.SchoolClass, error) {
	r := read("school_class", row)
	c := domain.SchoolClass{
		ID:           r.str("id"),
		SchoolID:     r.str("school_id"),
		Name:         r.str("name"),
		Grade:        r.integer("grade"),
		StudentCount: r.optInt("student_count"),
		TotalPapers:  r.count("total_papers"),
		TeacherID:    r.optStr("teacher_id"),
		TeacherName:  r.optStr("teacher_name"),
	}
	if r.err != nil {
		return domain.SchoolClass{}, r.err
	}
	return c, nil
}

func Device(row rowstore.Row) (domain.EcoBoxDevice, error) {
	r := read("ecobox_device", row)
	d := domain.EcoBoxDevice{
		ID:               r.str("id"),
		SchoolID:         r.str("school_id"),
		Location:         r.str("location"),
		Status:           domain.DeviceStatus(r.enum("status", func(s string) bool { return domain.DeviceStatus(s).Valid() })),
		TotalCapacity:    r.count("total_capacity"),
		CurrentCapacity:  r.count("current_capacity"),
		LastDataReceived: r.optTime("last_data_received"),
		DailyCollections: r.optInt("daily_collections"),
	}
	lat := r.optFloat("coordinates_lat")
	lng := r.optFloat("coordinates_lng")
	if r.err == nil && d.CurrentCapacity > d.TotalCapacity {
		r.fail("current_capacity", "exceeds total_capacity")
	}
	if r.err != nil {
		return domain.EcoBoxDevice{}, r.err
	}

	if lat != nil && lng != nil {
		d.Coordinates = &domain.Coordinates{Lat: *lat, Lng: *lng}
	}
	d.DisplayStatus = d.Status

	return d, nil
}

func Achievement(row rowstore.Row) (domain.Achievement, error) {
	r := read("achievement", row)
	a := domain.Achievement{
		ID:                  r.str("id"),
		Name:                r.str("name"),
		NameGeorgian:        r.str("name_georgian"),
		Description:         r.str("description"),
		DescriptionGeorgian: r.str("description_georgian"),
		Icon:                r.str("icon"),
		Category:            domain.AchievementCategory(r.enum("category", func(s string) bool { return domain.AchievementCategory(s).Valid() })),
		Requirement:         r.count("requirement"),
		Rarity:              domain.Rarity(r.enum("rarity", func(s string) bool { return domain.Rarity(s).Valid() })),
	}
	if r.err != nil {
		return domain.Achievement{}, r.err
	}
	return a, nil
}

// AchievementProgress maps a user_achievements row with its embedded catalog entry.
// Earned is left for the aggregation pass to reconcile.
func AchievementProgress(row rowstore.Row) (domain.AchievementProgress, error) {
	r := read("user_achievement", row)
	p := domain.AchievementProgress{
		ID:         r.str("id"),
		UserID:     r.str("user_id"),
		Progress:   r.count("progress"),
		EarnedDate: r.optTime("earned_date"),
	}
	achievementID := r.str("achievement_id")
	catalog, ok := r.one(JoinAchievement)
	if r.err == nil && !ok {
		r.fail(JoinAchievement, "join is missing for achievement_id "+achievementID)
	}
	if r.err != nil {
		return domain.AchievementProgress{}, r.err
	}

	a, err := Achievement(catalog)
	if err != nil {
		return domain.AchievementProgress{}, fmt.Errorf("user_achievement %s -> %w", p.ID, err)
	}
	if a.ID != achievementID {
		return domain.AchievementProgress{}, &MalformedRowError{Entity: "user_achievement", Field: "achievement_id", Reason: "does not match the embedded achievement"}
	}
	p.Achievement = a

	return p, nil
}

func Challenge(row rowstore.Row) (domain.Challenge, error) {
	r := read("challenge", row)
	c := domain.Challenge{
		ID:                  r.str("id"),
		Title:               r.str("title"),
		TitleGeorgian:       r.str("title_georgian"),
		Description:         r.str("description"),
		DescriptionGeorgian: r.str("description_georgian"),
		Type:                domain.ChallengeType(r.enum("type", func(s string) bool { return domain.ChallengeType(s).Valid() })),
		Target:              r.count("target"),
		Reward:              r.count("reward"),
		StartDate:           r.time("start_date"),
		EndDate:             r.time("end_date"),
		Participants:        r.optInt("participants"),
	}
	if r.err != nil {
		return domain.Challenge{}, r.err
	}
	return c, nil
}

func UserChallenge(row rowstore.Row) (domain.UserChallenge, error) {
	r := read("user_challenge", row)
	uc := domain.UserChallenge{
		ID:         r.str("id"),
		UserID:     r.str("user_id"),
		Progress:   r.count("progress"),
		Completed:  r.boolean("completed", false),
		JoinedDate: r.optTime("joined_date"),
	}
	challengeID := r.str("challenge_id")
	catalog, ok := r.one(JoinChallenge)
	if r.err == nil && !ok {
		r.fail(JoinChallenge, "join is missing for challenge_id "+challengeID)
	}
	if r.err != nil {
		return domain.UserChallenge{}, r.err
	}

	c, err := Challenge(catalog)
	if err != nil {
		return domain.UserChallenge{}, fmt.Errorf("user_challenge %s -> %w", uc.ID, err)
	}
	if c.ID != challengeID {
		return domain.UserChallenge{}, &MalformedRowError{Entity: "user_challenge", Field: "challenge_id", Reason: "does not match the embedded challenge"}
	}
	uc.Challenge = c

	return uc, nil
}

func EcoTip(row rowstore.Row) (domain.EcoTip, error) {
	r := read("eco_tip", row)
	t := domain.EcoTip{
		ID:              r.str("id"),
		Title:           r.str("title"),
		TitleGeorgian:   r.str("title_georgian"),
		Content:         r.str("content"),
		ContentGeorgian: r.str("content_georgian"),
		Category:        domain.TipCategory(r.enum("category", func(s string) bool { return domain.TipCategory(s).Valid() })),
		Difficulty:      domain.TipDifficulty(r.enum("difficulty", func(s string) bool { return domain.TipDifficulty(s).Valid() })),
		Impact:          domain.TipImpact(r.enum("impact", func(s string) bool { return domain.TipImpact(s).Valid() })),
		Icon:            r.str("icon"),
	}
	if r.err != nil {
		return domain.EcoTip{}, r.err
	}
	return t, nil
}

func Notification(row rowstore.Row) (domain.Notification, error) {
	r := read("notification", row)
	n := domain.Notification{
		ID:              r.str("id"),
		UserID:          r.str("user_id"),
		Type:            domain.NotificationType(r.enum("type", func(s string) bool { return domain.NotificationType(s).Valid() })),
		Title:           r.str("title"),
		TitleGeorgian:   r.str("title_georgian"),
		Message:         r.str("message"),
		MessageGeorgian: r.str("message_georgian"),
		Read:            r.boolean("read", false),
		CreatedAt:       r.optTime("created_at"),
		ActionURL:       r.optStr("action_url"),
		Icon:            r.optStr("icon"),
	}
	if r.err != nil {
		return domain.Notification{}, r.err
	}
	return n, nil
}

// NotificationToRow is the inverse of Notification for write-back.
func NotificationToRow(n domain.Notification) rowstore.Row {
	row := rowstore.Row{
		"id":               n.ID,
		"user_id":          n.UserID,
		"type":             string(n.Type),
		"title":            n.Title,
		"title_georgian":   n.TitleGeorgian,
		"message":          n.Message,
		"message_georgian": n.MessageGeorgian,
		"read":             n.Read,
	}
	if n.CreatedAt != nil {
		row["created_at"] = *n.CreatedAt
	}
	if n.ActionURL != nil {
		row["action_url"] = *n.ActionURL
	}
	if n.Icon != nil {
		row["icon"] = *n.Icon
	}
	return row
}

func Submission(row rowstore.Row) (domain.PaperSubmission, error) {
	r := read("paper_submission", row)
	s := domain.PaperSubmission{
		ID:             r.str("id"),
		UserID:         r.str("user_id"),
		EcoBoxID:       r.str("ecobox_id"),
		PapersCount:    r.count("papers_count"),
		SubmissionDate: r.optTime("submission_date"),
		Verified:       r.optBool("verified"),
	}
	if r.err == nil && s.PapersCount == 0 {
		r.fail("papers_count", "must be positive")
	}
	if r.err != nil {
		return domain.PaperSubmission{}, r.err
	}
	return s, nil
}

// SubmissionToRow omits the id and date when unset so the store assigns them.
func SubmissionToRow(s domain.PaperSubmission) rowstore.Row {
	row := rowstore.Row{
		"user_id":      s.UserID,
		"ecobox_id":    s.EcoBoxID,
		"papers_count": s.PapersCount,
	}
	if s.ID != "" {
		row["id"] = s.ID
	}
	if s.SubmissionDate != nil {
		row["submission_date"] = *s.SubmissionDate
	}
	if s.Verified != nil {
		row["verified"] = *s.Verified
	}
	return row
}

func UserChallengeToRow(uc domain.UserChallenge) rowstore.Row {
	row := rowstore.Row{
		"user_id":      uc.UserID,
		"challenge_id": uc.Challenge.ID,
		"progress":     uc.Progress,
		"completed":    uc.Completed,
	}
	if uc.ID != "" {
		row["id"] = uc.ID
	}
	if uc.JoinedDate != nil {
		row["joined_date"] = *uc.JoinedDate
	}
	return row
}
