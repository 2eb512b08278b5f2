package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for catalog operations.
var (
	ErrNetwork  = errors.New("catalog: network error")
	ErrDecode   = errors.New("catalog: malformed response")
	ErrNotFound = errors.New("catalog: not found")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // search, get
	Arg string // query or volume id
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("catalog %s [%s]: %v", e.Op, e.Arg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify maps a books API error onto the catalog sentinels.
func classify(op, arg string, err error) error {
	var kind error

	var apiErr *googleapi.Error
	var urlErr *url.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound:
		kind = ErrNotFound
	case errors.As(err, &apiErr):
		kind = ErrNetwork
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
		kind = ErrDecode
	case errors.As(err, &urlErr), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = ErrNetwork
	default:
		kind = ErrNetwork
	}

	return &Error{Op: op, Arg: arg, Err: fmt.Errorf("%w: %w", kind, err)}
}
