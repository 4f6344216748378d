package storage

import "errors"

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrMediaNotFound = errors.New("media not found")
	ErrMediaInUse    = errors.New("media is still referenced by a post")
	ErrPostLocked    = errors.New("post is locked by another operation")
)

var (
	ErrFileTooLarge = errors.New("file size exceeds limit")
	ErrFileNotFound = errors.New("file not found")
	ErrEmptyFile    = errors.New("file is empty")
)
