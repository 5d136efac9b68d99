package fixture

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

var (
	errDuplicate  = errors.New("duplicate key")
	errForeignKey = errors.New("foreign key violation")
	errCheck      = errors.New("check violation")
)

var knownTables = []string{
	rowstore.TableSchools,
	rowstore.TableClasses,
	rowstore.TableDevices,
	rowstore.TableProfiles,
	rowstore.TableCredentials,
	rowstore.TableAchievements,
	rowstore.TableUserAchieve,
	rowstore.TableChallenges,
	rowstore.TableUserChallenge,
	rowstore.TableSubmissions,
	rowstore.TableNotifications,
	rowstore.TableEcoTips,
	rowstore.TableQuiz,
	rowstore.TableSnapshots,
}

// unique lists column sets that must not repeat, besides id.
var unique = map[string][][]string{
	rowstore.TableProfiles:      {{"email"}},
	rowstore.TableCredentials:   {{"email"}, {"user_id"}},
	rowstore.TableUserAchieve:   {{"user_id", "achievement_id"}},
	rowstore.TableUserChallenge: {{"user_id", "challenge_id"}},
}

type foreignKey struct {
	column string
	table  string
}

var foreignKeys = map[string][]foreignKey{
	rowstore.TableClasses:       {{"school_id", rowstore.TableSchools}},
	rowstore.TableDevices:       {{"school_id", rowstore.TableSchools}},
	rowstore.TableCredentials:   {{"user_id", rowstore.TableProfiles}},
	rowstore.TableUserAchieve:   {{"achievement_id", rowstore.TableAchievements}},
	rowstore.TableUserChallenge: {{"challenge_id", rowstore.TableChallenges}},
	rowstore.TableSubmissions:   {{"ecobox_id", rowstore.TableDevices}},
}

func defaults(table string, now time.Time) rowstore.Row {
	switch table {
	case rowstore.TableSchools, rowstore.TableClasses:
		return rowstore.Row{"total_papers": 0, "created_at": now}
	case rowstore.TableProfiles:
		return rowstore.Row{"total_papers": 0, "role": "student", "joined_date": now, "created_at": now}
	case rowstore.TableDevices:
		return rowstore.Row{"status": "offline", "total_capacity": 100, "current_capacity": 0}
	case rowstore.TableCredentials:
		return rowstore.Row{"created_at": now}
	case rowstore.TableUserAchieve:
		return rowstore.Row{"progress": 0}
	case rowstore.TableUserChallenge:
		return rowstore.Row{"progress": 0, "completed": false, "joined_date": now}
	case rowstore.TableSubmissions:
		return rowstore.Row{"submission_date": now}
	case rowstore.TableNotifications:
		return rowstore.Row{"read": false, "created_at": now}
	}
	return nil
}

// checkLocked validates a row about to be inserted.
func (s *Store) checkLocked(table string, r rowstore.Row) error {
	id := rowstore.Key(r["id"])
	for _, existing := range s.tables[table] {
		if rowstore.Key(existing["id"]) == id {
			return fmt.Errorf("%w: id %s", errDuplicate, id)
		}
	}
	return s.checkRowLocked(table, r)
}

// checkRowLocked validates r against the unique, foreign key and check
// constraints, ignoring the stored row with the same id.
func (s *Store) checkRowLocked(table string, r rowstore.Row) error {
	id := rowstore.Key(r["id"])

	for _, cols := range unique[table] {
		for _, existing := range s.tables[table] {
			if rowstore.Key(existing["id"]) == id {
				continue
			}
			if sameColumns(existing, r, cols) {
				return fmt.Errorf("%w: %s", errDuplicate, strings.Join(cols, ","))
			}
		}
	}

	for _, fk := range foreignKeys[table] {
		ref := rowstore.Key(r[fk.column])
		if ref == "" {
			continue
		}
		if !s.existsLocked(fk.table, ref) {
			return fmt.Errorf("%w: %s=%s", errForeignKey, fk.column, ref)
		}
	}

	switch table {
	case rowstore.TableSubmissions:
		if intOf(r["papers_count"]) <= 0 {
			return fmt.Errorf("%w: papers_count > 0", errCheck)
		}
	case rowstore.TableQuiz:
		if intOf(r["correct_answer"]) < 0 {
			return fmt.Errorf("%w: correct_answer >= 0", errCheck)
		}
	case rowstore.TableDevices:
		if intOf(r["current_capacity"]) < 0 || intOf(r["total_capacity"]) < 0 {
			return fmt.Errorf("%w: capacity >= 0", errCheck)
		}
	}

	return nil
}

func (s *Store) existsLocked(table, id string) bool {
	for _, r := range s.tables[table] {
		if rowstore.Key(r["id"]) == id {
			return true
		}
	}
	return false
}

func sameColumns(a, b rowstore.Row, cols []string) bool {
	for _, c := range cols {
		if a[c] == nil || b[c] == nil || rowstore.Compare(a[c], b[c]) != 0 {
			return false
		}
	}
	return true
}
