package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

// SubmitPapersRequest leaves the count unchecked here; the activity service
// owns the order in which submission checks run.
type SubmitPapersRequest struct {
	UserID      string `json:"userId"`
	EcoBoxID    string `json:"ecoboxId"`
	PapersCount int    `json:"papersCount"`
}

func (req *SubmitPapersRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.EcoBoxID, validation.Required, validation.Match(idExp)),
	)
}

type SnapshotRequest struct {
	Board domain.BoardType `json:"board,omitempty"`
}

func (req *SnapshotRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Board, validation.In(domain.BoardStudent, domain.BoardClass, domain.BoardSchool)),
	)
}
