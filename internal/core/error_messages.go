package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. Users quote the code; support looks it up here.
//
// # Storage Errors (DB001-DB099)
//
//	DB001 - Unique constraint: a value that must be unique already exists
//	DB002 - Foreign key: referenced project does not exist
//	DB003 - Connection refused: unable to connect to database
//	DB004 - Connection reset: database connection was interrupted
//	DB005 - Timeout: operation timed out
//	DB006 - Deadlock or busy: database was busy with conflicting operations
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Project name: the project name is empty or already taken
//	VAL002 - Invalid name: a sheet or column name has disallowed characters
//	VAL003 - Type mismatch: a value does not match its column type
//	VAL004 - Column mismatch: a row or sheet does not match its table columns
//	VAL005 - Missing id: a project or sheet id is missing or malformed
//	VAL000 - Any other validation failure
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Invalid workbook: the file could not be decoded
//	FILE003 - Unsupported format
//	FILE004 - No file provided
//	FILE005 - Empty file
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - System busy: too many uploads in progress
//	UPL002 - Request cancelled
//	UPL003 - Request timeout
//
// # Lookup Errors
//
//	PRJ001 - Project not found
//	SHT001 - Sheet not found
//
// # Rate Limiting
//
//	RATE001 - Too many requests
//
// # Default
//
//	ERR000 - An unexpected error occurred; check the logs for the request id
//
// Typed errors carry their code. Untyped errors are matched case-insensitively
// against errorPatterns with strings.Contains and the first match wins, so
// specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetdb/internal/workbook"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// Codes carried by ValidationError and NotFoundError. Typed errors select
// their catalogue entry by code since their text quotes sheet, column and
// project names.
const (
	CodeProjectName     = "VAL001"
	CodeInvalidName     = "VAL002"
	CodeTypeMismatch    = "VAL003"
	CodeColumnMismatch  = "VAL004"
	CodeMissingID       = "VAL005"
	CodeFileTooLarge    = "FILE001"
	CodeInvalidWorkbook = "FILE002"
	CodeUnsupported     = "FILE003"
	CodeNoFile          = "FILE004"
	CodeEmptyFile       = "FILE005"
	CodeProjectNotFound = "PRJ001"
	CodeSheetNotFound   = "SHT001"
)

var codedMessages = map[string]UserMessage{
	// Lookups
	CodeProjectNotFound: {
		Message: "Project not found",
		Action:  "Create the project first or check the project id",
	},
	CodeSheetNotFound: {
		Message: "Sheet not found",
		Action:  "Check the sheet id or upload the workbook again",
	},

	// Validation
	CodeProjectName: {
		Message: "Invalid project name",
		Action:  "Choose a non-empty name that is not already in use",
	},
	CodeInvalidName: {
		Message: "A sheet or column name contains unsupported characters",
		Action:  "Use letters, digits, spaces and underscores in sheet and header names",
	},
	CodeTypeMismatch: {
		Message: "A value does not match its column type",
		Action:  "Column types are taken from the first data row; make later rows consistent",
	},
	CodeColumnMismatch: {
		Message: "A sheet does not match the columns of its table",
		Action:  "Make sure sheets sharing a name have the same headers",
	},
	CodeMissingID: {
		Message: "A valid id is required",
		Action:  "Check the project or sheet id in the request",
	},

	// Files
	CodeFileTooLarge: {
		Message: "File exceeds the maximum size limit",
		Action:  "Split the workbook into smaller files",
	},
	CodeInvalidWorkbook: {
		Message: "The workbook could not be read",
		Action:  "Open the file in a spreadsheet program and save it again",
	},
	CodeUnsupported: {
		Message: "This file type is not supported",
		Action:  "Upload an .xlsx, .xls or .csv file",
	},
	CodeNoFile: {
		Message: "No file was selected",
		Action:  "Please select a workbook to upload",
	},
	CodeEmptyFile: {
		Message: "The uploaded file is empty",
		Action:  "Please upload a workbook with data rows",
	},
}

func codedMessage(code string) (UserMessage, bool) {
	msg, ok := codedMessages[code]
	if !ok {
		return UserMessage{}, false
	}
	msg.Code = code
	return msg, true
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns classify untyped errors (storage, context, limiter) by their
// text.
var errorPatterns = []errorPattern{
	// Uploads
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL003",
		},
	},

	// Storage
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Check for duplicate entries",
			Code:    "DB001",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced project does not exist",
			Action:  "Create the project before uploading",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try uploading a smaller file or try again later",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB006",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB006",
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

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// defaultValidation is used for validation errors no pattern recognises.
var defaultValidation = UserMessage{
	Action: "Correct the request and try again",
	Code:   "VAL000",
}

// MapError converts a technical error to a user-friendly message.
//
// Validation and not-found errors keep their own text, since it names the
// offending sheet, row or id, and take the catalogue entry of their code.
// Workbook decode errors are classified by sentinel and get the catalogue
// message only. Every other error is matched against errorPatterns so
// storage details never reach the client.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		ve *ValidationError
		nf *NotFoundError
		pe *ParseError
	)
	switch {
	case errors.As(err, &ve):
		msg, ok := codedMessage(ve.Code)
		if !ok {
			msg = defaultValidation
		}
		msg.Message = ve.Message
		return msg
	case errors.As(err, &nf):
		msg, ok := codedMessage(nf.Code)
		if !ok {
			msg = defaultMessage
		}
		msg.Message = nf.Message
		return msg
	case errors.As(err, &pe):
		switch {
		case errors.Is(pe.Err, workbook.ErrUnsupportedFormat):
			msg, _ := codedMessage(CodeUnsupported)
			return msg
		case errors.Is(pe.Err, workbook.ErrEmptyFile):
			msg, _ := codedMessage(CodeEmptyFile)
			return msg
		}
		msg, _ := codedMessage(CodeInvalidWorkbook)
		return msg
	}

	return lookupPattern(err)
}

func lookupPattern(err error) UserMessage {
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific catalogue entry rather
// than the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
