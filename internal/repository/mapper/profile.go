package mapper

import (
	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

// Profile maps a profiles row. A set school_id or class_id must come with its
// embedded join; a missing join is malformed rather than an empty name.
// Level and streak are derived later and ignored here.
func Profile(row rowstore.Row) (domain.UserProfile, error) {
	r := read("profile", row)
	p := domain.UserProfile{
		ID:          r.str("id"),
		Email:       r.str("email"),
		FirstName:   r.str("first_name"),
		LastName:    r.str("last_name"),
		Role:        domain.Role(r.enum("role", func(s string) bool { return domain.Role(s).Valid() })),
		AvatarURL:   r.optStr("avatar_url"),
		TotalPapers: r.count("total_papers"),
		JoinedDate:  r.optTime("joined_date"),
		LastActive:  r.optTime("last_active"),
	}

	if schoolID := r.optStr("school_id"); schoolID != nil {
		sub, ok := r.one(JoinSchool)
		if r.err == nil && !ok {
			r.fail(JoinSchool, "join is missing for school_id "+*schoolID)
		}
		if r.err == nil {
			s := read("profile.school", sub)
			p.School = &domain.SchoolRef{ID: s.str("id"), Name: s.str("name"), City: derefOr(s.optStr("city"))}
			if s.err != nil {
				return domain.UserProfile{}, s.err
			}
		}
	}

	if classID := r.optStr("class_id"); classID != nil {
		sub, ok := r.one(JoinClass)
		if r.err == nil && !ok {
			r.fail(JoinClass, "join is missing for class_id "+*classID)
		}
		if r.err == nil {
			c := read("profile.class", sub)
			p.Class = &domain.ClassRef{ID: c.str("id"), Name: c.str("name"), Grade: c.integer("grade")}
			if c.err != nil {
				return domain.UserProfile{}, c.err
			}
		}
	}

	if r.err != nil {
		return domain.UserProfile{}, r.err
	}
	p.Achievements = []domain.AchievementProgress{}

	return p, nil
}

// StudentStanding maps a profiles row with its school join into a ranking input.
func StudentStanding(row rowstore.Row) (domain.Standing, error) {
	p, err := Profile(row)
	if err != nil {
		return domain.Standing{}, err
	}

	st := domain.Standing{
		ID:     p.ID,
		Name:   p.FullName(),
		Type:   domain.BoardStudent,
		Avatar: p.AvatarURL,
		Papers: p.TotalPapers,
	}
	if p.School != nil {
		name := p.School.Name
		st.School = &name
	}
	return st, nil
}

func SchoolStanding(row rowstore.Row) (domain.Standing, error) {
	r := read("school", row)
	st := domain.Standing{
		ID:     r.str("id"),
		Name:   r.str("name"),
		Type:   domain.BoardSchool,
		Papers: r.count("total_papers"),
	}
	if r.err != nil {
		return domain.Standing{}, r.err
	}
	return st, nil
}

// ClassStanding maps a school_classes row with its school join.
func ClassStanding(row rowstore.Row) (domain.Standing, error) {
	c, err := SchoolClass(row)
	if err != nil {
		return domain.Standing{}, err
	}

	r := read("school_class", row)
	sub, ok := r.one(JoinSchool)
	if r.err == nil && !ok {
		r.fail(JoinSchool, "join is missing for school_id "+c.SchoolID)
	}
	var school string
	if r.err == nil {
		s := read("school_class.school", sub)
		school = s.str("name")
		r.err = s.err
	}
	if r.err != nil {
		return domain.Standing{}, r.err
	}

	return domain.Standing{
		ID:     c.ID,
		Name:   c.Name,
		Type:   domain.BoardClass,
		School: &school,
		Papers: c.TotalPapers,
	}, nil
}

func Credential(row rowstore.Row) (domain.Credential, error) {
	r := read("credential", row)
	c := domain.Credential{
		UserID:       r.str("user_id"),
		Email:        r.str("email"),
		PasswordHash: r.str("password_hash"),
	}
	if r.err != nil {
		return domain.Credential{}, r.err
	}
	return c, nil
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
