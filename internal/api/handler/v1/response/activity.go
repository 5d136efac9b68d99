package response

import (
	"github.com/ecobox-ge/ecobox-api/internal/aggregate"
	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

type SubmitPapersResponse struct {
	Submission domain.PaperSubmission `json:"submission"`
	Impact     aggregate.Impact       `json:"impact"`
}

type SnapshotResponse struct {
	Snapshots []domain.Snapshot `json:"snapshots"`
}

type Healthcheck struct {
	Status string `json:"status"`
}
