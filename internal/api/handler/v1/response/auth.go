package response

import (
	"time"

	"github.com/ecobox-ge/ecobox-api/internal/domain"
)

type LoginResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	User      domain.UserProfile `json:"user"`
}

type MeResponse struct {
	Identity domain.Identity    `json:"identity"`
	Profile  domain.UserProfile `json:"profile"`
}
