package mapper

import (
	"encoding/json"
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

func Snapshot(row rowstore.Row) (domain.Snapshot, error) {
	r := read("leaderboard_snapshot", row)
	s := domain.Snapshot{
		ID:      r.str("id"),
		Board:   domain.BoardType(r.enum("board", func(v string) bool { return domain.BoardType(v).Valid() })),
		TakenAt: r.time("taken_at"),
	}
	raw, _ := r.value("ranks", true)
	if r.err != nil {
		return domain.Snapshot{}, r.err
	}

	var ranks []byte
	switch v := raw.(type) {
	case string:
		ranks = []byte(v)
	case []byte:
		ranks = v
	default:
		// drivers may hand jsonb back already decoded
		ranks, _ = json.Marshal(v)
	}

	if err := json.Unmarshal(ranks, &s.Ranks); err != nil {
		return domain.Snapshot{}, &MalformedRowError{Entity: "leaderboard_snapshot", Field: "ranks", Reason: fmt.Sprintf("is not a rank map: %v", err)}
	}
	return s, nil
}

func SnapshotToRow(s domain.Snapshot) (rowstore.Row, error) {
	ranks, err := json.Marshal(s.Ranks)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal -> %w", err)
	}

	row := rowstore.Row{
		"board":    string(s.Board),
		"taken_at": s.TakenAt,
		"ranks":    string(ranks),
	}
	if s.ID != "" {
		row["id"] = s.ID
	}
	return row, nil
}
