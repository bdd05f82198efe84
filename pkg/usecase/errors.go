package usecase

import "errors"

// Sentinel errors for the reconciliation engine
var (
	// ErrNoConnector is returned by Run when no connector is configured
	ErrNoConnector = errors.New("no directory connector configured")

	// ErrNoTarget is returned by Run when no target client is configured
	ErrNoTarget = errors.New("no target client configured")
)
