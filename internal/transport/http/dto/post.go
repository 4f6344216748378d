package dto

// CreatePostRequest is the body of POST /api/post. Metadata is free-form;
// RFC 3339 strings stay text, use a {"$time": "..."} object for a timestamp.
type CreatePostRequest struct {
	Title    string         `json:"title" validate:"required"`
	Body     string         `json:"body" validate:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UpdatePostRequest is the body of PATCH /api/post/:id. Absent fields are
// left unchanged; an empty metadata object clears the metadata.
type UpdatePostRequest struct {
	Title    *string        `json:"title,omitempty" validate:"omitnil,min=1"`
	Body     *string        `json:"body,omitempty" validate:"omitnil,min=1"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (r UpdatePostRequest) IsEmpty() bool {
	return r.Title == nil && r.Body == nil && r.Metadata == nil
}
