package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

var ErrUnknownBoard = errors.New("unknown leaderboard type")

type StudentStandingRepository interface {
	StudentStandings(ctx context.Context, limit int) ([]domain.Standing, error)
}

type SchoolStandingRepository interface {
	Standings(ctx context.Context) ([]domain.Standing, error)
	ClassStandings(ctx context.Context) ([]domain.Standing, error)
}

// Boards reads the current standings of each leaderboard type.
type Boards struct {
	students StudentStandingRepository
	schools  SchoolStandingRepository
	limit    int
}

func NewBoards(students StudentStandingRepository, schools SchoolStandingRepository, limit int) *Boards {
	if limit <= 0 {
		limit = 20
	}
	return &Boards{students: students, schools: schools, limit: limit}
}

func (b *Boards) Standings(ctx context.Context, board domain.BoardType) ([]domain.Standing, error) {
	var (
		standings []domain.Standing
		err       error
	)

	switch board {
	case domain.BoardStudent, "":
		standings, err = b.students.StudentStandings(ctx, b.limit)
	case domain.BoardSchool:
		standings, err = b.schools.Standings(ctx)
	case domain.BoardClass:
		standings, err = b.schools.ClassStandings(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, board)
	}
	if err != nil {
		return nil, fmt.Errorf("b.Standings(%s) -> %w", board, err)
	}

	if len(standings) > b.limit {
		standings = standings[:b.limit]
	}
	return standings, nil
}
