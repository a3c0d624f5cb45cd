package services

import "errors"

// ErrSheetNotConfigured is returned by ImportSheet when no sheet reader was wired.
var ErrSheetNotConfigured = errors.New("google sheet not configured")
