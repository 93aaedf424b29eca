package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/query-estimator/pkg/apperrors"
)

func TestNewErrorResult(t *testing.T) {
	result := NewErrorResult("test_error", "this is a test error")

	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	assert.True(t, result.IsError)

	raw, err := json.Marshal(result.Content[0])
	require.NoError(t, err)
	var content struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(raw, &content))

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(content.Text), &errResp))
	assert.True(t, errResp.Error)
	assert.Equal(t, "test_error", errResp.Code)
	assert.Equal(t, "this is a test error", errResp.Message)
	assert.Nil(t, errResp.Details)
}

func TestAsErrorResult(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"invalid input", fmt.Errorf("bad: %w", apperrors.ErrInvalidInput), CodeInvalidInput},
		{"not found", fmt.Errorf("gone: %w", apperrors.ErrNotFound), CodeDatabaseNotFound},
		{"unsupported", fmt.Errorf("mssql: %w", apperrors.ErrUnsupportedEngine), CodeUnsupportedEngine},
		{"execution", fmt.Errorf("syntax: %w", apperrors.ErrExecution), CodeExplainFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AsErrorResult(tt.err)
			require.NotNil(t, result)
			assert.True(t, result.IsError)
			assert.Equal(t, tt.code, errorCode(tt.err))
		})
	}

	assert.Nil(t, AsErrorResult(errors.New("connection refused")))
}
