package services

import "errors"

var (
	ErrForbidden            = errors.New("forbidden")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConversationNotFound = errors.New("conversation not found")
)
