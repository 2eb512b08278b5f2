package api

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklog/booklog-server/internal/http/response"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		input   any
		success bool
		code    string
	}{
		{name: "success response", status: "200", input: map[string]string{"key": "value"}, success: true},
		{name: "created response", status: "201", input: map[string]string{"id": "123"}, success: true},
		{name: "no content response", status: "204", input: nil, success: true},
		{name: "plain error", status: "404", input: errors.New("resource not found"), code: "NOT_FOUND"},
		{name: "huma status error", status: "401", input: huma.Error401Unauthorized("authentication required"), code: "UNAUTHORIZED"},
		{
			name:   "api error with details",
			status: "409",
			input: &APIError{
				status:  409,
				Code:    "ALREADY_EXISTS",
				Message: "email already registered",
				Details: map[string]string{"field": "email"},
			},
			code: "ALREADY_EXISTS",
		},
		{name: "internal error", status: "500", input: errors.New("boom"), code: "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			raw, err := json.Marshal(out)
			require.NoError(t, err)

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(raw, &decoded))
			assert.InDelta(t, response.Version, decoded["v"], 0)
			assert.Equal(t, tt.success, decoded["success"])

			if tt.success {
				assert.NotContains(t, decoded, "error")
				return
			}
			errBody, ok := decoded["error"].(map[string]any)
			require.True(t, ok, "error member missing: %s", raw)
			assert.Equal(t, tt.code, errBody["code"])
			assert.NotEmpty(t, errBody["message"])
		})
	}
}

func TestEnvelopeTransformer_PassesEnvelopesThrough(t *testing.T) {
	env := response.Fail("RATE_LIMITED", "slow down", nil)

	out, err := EnvelopeTransformer(nil, "429", env)
	require.NoError(t, err)
	assert.Equal(t, env, out)
}

func TestEnvelopeTransformer_KeepsDetails(t *testing.T) {
	out, err := EnvelopeTransformer(nil, "422", &APIError{
		status:  422,
		Code:    "VALIDATION",
		Message: "validation failed",
		Details: map[string]string{"body.password": "expected length >= 8"},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"v": 1,
		"success": false,
		"error": {
			"code": "VALIDATION",
			"message": "validation failed",
			"details": {"body.password": "expected length >= 8"}
		}
	}`, string(raw))
}
