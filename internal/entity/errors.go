package entity

import "errors"

// Domain errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrNoDataset       = errors.New("no dataset uploaded for this session")

	// Classification errors
	ErrAmbiguousReference = errors.New("back-reference with no prior context")

	// Aggregation errors
	ErrMissingColumn = errors.New("dataset is missing a required column")
	ErrUnknownEntity = errors.New("entity not found in dataset")
	ErrInvalidTable  = errors.New("invalid table")

	// File errors
	ErrInvalidFile      = errors.New("invalid file")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidExtension = errors.New("invalid file extension")
	ErrEmptyDataset     = errors.New("dataset contains no rows")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorResponse is the JSON error body of the HTTP API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
