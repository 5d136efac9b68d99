package dao

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// NotifyChannel is the LISTEN/NOTIFY channel the change triggers publish on
// unless InitTables is given another.
const NotifyChannel = "table_changes"

// watchedTables get a row trigger that publishes every change on the channel.
var watchedTables = []string{
	"paper_submissions",
	"ecobox_devices",
	"notifications",
	"profiles",
	"schools",
	"school_classes",
	"user_achievements",
	"user_challenges",
	"challenges",
	"eco_tips",
	"quiz_questions",
}

func InitTables(db *gorm.DB, channel string) error {
	if channel == "" {
		channel = NotifyChannel
	}

	if err := db.AutoMigrate(
		&School{},
		&SchoolClass{},
		&EcoboxDevice{},
		&Profile{},
		&Credential{},
		&Achievement{},
		&UserAchievement{},
		&Challenge{},
		&UserChallenge{},
		&PaperSubmission{},
		&Notification{},
		&EcoTip{},
		&QuizQuestion{},
		&LeaderboardSnapshot{},
	); err != nil {
		return fmt.Errorf("db.AutoMigrate -> %w", err)
	}

	for _, stmt := range triggerSQL(channel) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("db.Exec trigger -> %w", err)
		}
	}

	return nil
}

func triggerSQL(channel string) []string {
	stmts := []string{
		strings.ReplaceAll(notifyFunction, "{{channel}}", strings.ReplaceAll(channel, "'", "''")),
		applySubmissionFunction,
		`DROP TRIGGER IF EXISTS paper_submissions_apply ON paper_submissions`,
		`CREATE TRIGGER paper_submissions_apply AFTER INSERT ON paper_submissions
			FOR EACH ROW EXECUTE FUNCTION apply_paper_submission()`,
	}

	for _, table := range watchedTables {
		stmts = append(stmts,
			fmt.Sprintf(`DROP TRIGGER IF EXISTS %s_notify ON %s`, table, table),
			fmt.Sprintf(`CREATE TRIGGER %s_notify AFTER INSERT OR UPDATE OR DELETE ON %s
				FOR EACH ROW EXECUTE FUNCTION notify_table_change()`, table, table),
		)
	}
	return stmts
}

// notify_table_change publishes {table, event, new, old}. The profiles rows
// carry no secrets; credentials are never watched.
const notifyFunction = `
CREATE OR REPLACE FUNCTION notify_table_change() RETURNS trigger AS $$
DECLARE
	payload json;
BEGIN
	payload := json_build_object(
		'table', TG_TABLE_NAME,
		'event', TG_OP,
		'new', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE row_to_json(NEW) END,
		'old', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE row_to_json(OLD) END
	);
	PERFORM pg_notify('{{channel}}', payload::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`

// apply_paper_submission keeps the denormalised totals in step with the ledger.
const applySubmissionFunction = `
CREATE OR REPLACE FUNCTION apply_paper_submission() RETURNS trigger AS $$
DECLARE
	p profiles%ROWTYPE;
BEGIN
	UPDATE profiles
		SET total_papers = total_papers + NEW.papers_count,
			last_active = NEW.submission_date,
			updated_at = now()
		WHERE id = NEW.user_id
		RETURNING * INTO p;

	IF p.school_id IS NOT NULL THEN
		UPDATE schools SET total_papers = total_papers + NEW.papers_count, updated_at = now()
			WHERE id = p.school_id;
	END IF;
	IF p.class_id IS NOT NULL THEN
		UPDATE school_classes SET total_papers = total_papers + NEW.papers_count, updated_at = now()
			WHERE id = p.class_id;
	END IF;
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`
