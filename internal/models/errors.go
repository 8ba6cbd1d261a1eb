package models

import "errors"

var (
	ErrConsentRequired      = errors.New("explicit user consent is required")
	ErrNotFound             = errors.New("not found")
	ErrCaregiverInactive    = errors.New("caregiver is not active")
	ErrStorage              = errors.New("storage unavailable, please try again")
	ErrLastEmergencyContact = errors.New("cannot remove the last emergency contact, add another one first")
	ErrRequestNotPending    = errors.New("contact request is no longer pending")
	ErrInvalidArgument      = errors.New("invalid argument")
)
