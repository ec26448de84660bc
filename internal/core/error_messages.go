// Package core provides the synthetic dataset generation engine.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Users can quote the code to support staff for faster diagnosis.
//
// # Field Errors (FLD001-FLD099)
//
//	FLD001 - Unknown field: One or more requested fields do not exist
//	         Action: Pick fields from the list returned by /api/fields
//	         Patterns: "unknown field kind"
//
//	FLD002 - No fields: No fields were selected
//	         Action: Select at least one column to generate
//	         Patterns: "no fields selected"
//
//	PRE001 - Unknown preset: The requested preset does not exist
//	         Action: Pick a preset from the list returned by /api/presets
//	         Patterns: "unknown preset"
//
// # Row Count Errors (CNT001-CNT099)
//
//	CNT001 - Missing count: Row count is required
//	         Action: Enter a number of records between 1 and 100,000
//	         Patterns: "row count is required"
//
//	CNT002 - Not a number: Row count is not a whole number
//	         Action: Enter a number of records between 1 and 100,000
//	         Patterns: "is not a number"
//
//	CNT003 - Out of range: Row count is outside the allowed range
//	         Action: Enter a number of records between 1 and 100,000
//	         Patterns: "is out of range"
//
// # Request Errors (SEED, FMT, REQ)
//
//	SEED001 - Invalid seed: Seed must be a non-negative whole number
//	          Patterns: "invalid seed"
//
//	FMT001 - Unsupported format: Output format is not supported
//	         Action: Use csv, json, xml or sql
//	         Patterns: "unsupported output format"
//
//	REQ001 - Request cancelled, REQ002 - Request timed out
//	         Patterns: "context canceled", "context deadline exceeded"
//
//	REQ003 - Malformed request: The request body could not be parsed
//	         Patterns: "malformed request"
//
// # Generation Errors (GEN001-GEN099)
//
//	GEN001 - Generation failed: A value generator faulted mid-stream
//	         Action: Please try again or contact support
//	         Patterns: "generation failed"
//
//	GEN002 - System busy: Too many generations in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent generations"
//
//	GEN003 - Not found: Generation record not found
//	         Patterns: "generation record not found"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check
// the application logs for the original error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

const rowCountAction = "Enter a number of records between 1 and 100,000"

var errorPatterns = []errorPattern{
	// Field selection
	{
		pattern: "unknown field kind",
		msg: UserMessage{
			Message: "One or more requested fields do not exist",
			Action:  "Pick fields from the list of available columns",
			Code:    "FLD001",
		},
	},
	{
		pattern: "no fields selected",
		msg: UserMessage{
			Message: "No fields were selected",
			Action:  "Select at least one column to generate",
			Code:    "FLD002",
		},
	},
	{
		pattern: "unknown preset",
		msg: UserMessage{
			Message: "The requested preset does not exist",
			Action:  "Pick one of the listed presets",
			Code:    "PRE001",
		},
	},

	// Row count
	{
		pattern: "row count is required",
		msg: UserMessage{
			Message: "Row count is required",
			Action:  rowCountAction,
			Code:    "CNT001",
		},
	},
	{
		pattern: "is not a number",
		msg: UserMessage{
			Message: "Row count is not a whole number",
			Action:  rowCountAction,
			Code:    "CNT002",
		},
	},
	{
		pattern: "is out of range",
		msg: UserMessage{
			Message: "Row count is outside the allowed range",
			Action:  rowCountAction,
			Code:    "CNT003",
		},
	},

	// Request parameters
	{
		pattern: "invalid seed",
		msg: UserMessage{
			Message: "Seed must be a non-negative whole number",
			Action:  "Leave the seed empty for random output",
			Code:    "SEED001",
		},
	},
	{
		pattern: "unsupported output format",
		msg: UserMessage{
			Message: "Output format is not supported",
			Action:  "Use csv, json, xml or sql",
			Code:    "FMT001",
		},
	},

	// Generation
	{
		pattern: "generation failed",
		msg: UserMessage{
			Message: "Data generation failed before the file was complete",
			Action:  "Please try again or contact support",
			Code:    "GEN001",
		},
	},
	{
		pattern: "too many concurrent generations",
		msg: UserMessage{
			Message: "System is busy generating other datasets",
			Action:  "Please wait a moment and try again",
			Code:    "GEN002",
		},
	},
	{
		pattern: "generation record not found",
		msg: UserMessage{
			Message: "Generation not found",
			Action:  "The record may have expired from history",
			Code:    "GEN003",
		},
	},

	// Request lifecycle
	{
		pattern: "malformed request",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send form fields or a JSON object with fields, count, seed and format",
			Code:    "REQ003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller row count or try again later",
			Code:    "REQ002",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. The first
// matching pattern wins; ERR000 is returned when nothing matches.
//
// Example:
//
//	msg := MapError(&UnknownFieldKindError{Kinds: []string{"nope"}})
//	// msg.Code == "FLD001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific (non-ERR000) message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
