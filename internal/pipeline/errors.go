package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Fixed user-facing messages.
const (
	MsgDecodeError = "Error: Unable to read the uploaded file."
	MsgSchemaError = "Error: CSV must contain either UniqueID and Address columns or " +
		"UniqueID, Street, City, State, Country, and PostalCode columns."
	MsgEmptyResult = "Error: No geocoding results found."
)

var (
	ErrDecode      = errors.New("unable to decode upload")
	ErrSchema      = errors.New("required columns are missing")
	ErrEmptyResult = errors.New("no geocoding results found")
)

// DecodeError reports that the raw upload could not be turned into a table.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// SchemaError reports that the header matches neither accepted layout.
type SchemaError struct {
	Columns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: got columns [%s]", ErrSchema, strings.Join(e.Columns, ", "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// EmptyResultError reports that no row of the upload resolved to a coordinate.
type EmptyResultError struct {
	Rows int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%v: 0 of %d rows resolved", ErrEmptyResult, e.Rows)
}

func (e *EmptyResultError) Is(target error) bool { return target == ErrEmptyResult }

// CountMessage is shown after a successful run.
func CountMessage(n int) string {
	return fmt.Sprintf("Address Count: %d", n)
}

// UserMessage maps a pipeline error to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDecode):
		return MsgDecodeError
	case errors.Is(err, ErrSchema):
		return MsgSchemaError
	case errors.Is(err, ErrEmptyResult):
		return MsgEmptyResult
	default:
		return "Error: " + err.Error()
	}
}
