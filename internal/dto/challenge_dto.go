package dto

import "github.com/noah-isme/pitch-review/internal/models"

// ChallengeListResponse wraps the challenge catalog.
type ChallengeListResponse struct {
	Items []models.Challenge `json:"items"`
	Total int                `json:"total"`
}

// NewChallengeListResponse builds the catalog payload.
func NewChallengeListResponse(items []models.Challenge) ChallengeListResponse {
	if items == nil {
		items = []models.Challenge{}
	}
	return ChallengeListResponse{Items: items, Total: len(items)}
}
