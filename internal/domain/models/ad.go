package models

import "github.com/google/uuid"

type Ad struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	DurationMs int64     `json:"duration"`
}
