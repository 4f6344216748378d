package models

import "github.com/google/uuid"

// Principal is the caller a verified credential resolves to.
type Principal struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}
