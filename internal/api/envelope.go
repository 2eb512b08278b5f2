package api

import (
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booklog/booklog-server/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the response
// envelope. Errors produced by RegisterErrorHandler become the error member.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope:
		return body, nil
	case *APIError:
		return response.Fail(body.Code, body.Message, body.Details), nil
	case huma.StatusError:
		return response.Fail(statusToCode(body.GetStatus()), body.Error(), nil), nil
	case error:
		code, err := strconv.Atoi(status)
		if err != nil {
			code = http.StatusInternalServerError
		}
		return response.Fail(statusToCode(code), body.Error(), nil), nil
	}
	return response.Wrap(v), nil
}
