package response

import "inkwell/internal/domain/models"

type PostResponse struct {
	Post *models.Post `json:"post"`
}

type SuccessResponse struct {
	Success bool         `json:"success"`
	Post    *models.Post `json:"post,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
