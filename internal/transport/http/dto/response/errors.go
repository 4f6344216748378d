package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrAuthenticationFailed = ErrorResponse{
		Status:  "error",
		Error:   "authentication_failed",
		Details: "A valid credential is required",
	}

	ErrPostNotFound = ErrorResponse{
		Status:  "error",
		Error:   "not_found",
		Details: "Post not found",
	}

	ErrMediaNotFound = ErrorResponse{
		Status:  "error",
		Error:   "not_found",
		Details: "Featured media not found",
	}

	ErrPostBusy = ErrorResponse{
		Status:  "error",
		Error:   "conflict",
		Details: "Another change to this post is in progress",
	}

	ErrInternal = ErrorResponse{
		Status: "error",
		Error:  "internal_error",
	}
)
