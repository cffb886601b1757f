package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studieren/taskboard/store"
)

func TestFlexIntUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    FlexInt
		wantErr bool
	}{
		{`{"v": 30}`, 30, false},
		{`{"v": "30"}`, 30, false},
		{`{"v": " 7 "}`, 7, false},
		{`{"v": ""}`, 0, false},
		{`{"v": null}`, 0, false},
		{`{}`, 0, false},
		{`{"v": "thirty"}`, 0, true},
		{`{"v": 1.5}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var out struct {
				V FlexInt `json:"v"`
			}
			err := json.Unmarshal([]byte(tt.in), &out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.V)
		})
	}
}

func TestParseDueDate(t *testing.T) {
	s := func(v string) *string { return &v }

	got, err := parseDueDate(nil)
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseDueDate(s("  "))
	assert.NoError(t, err)
	assert.Nil(t, got)

	for _, in := range []string{"2025-06-30", "2025-06-30T10:00", "2025-06-30T10:00:00", "2025-06-30T10:00:00+02:00"} {
		got, err = parseDueDate(s(in))
		require.NoError(t, err, in)
		require.NotNil(t, got, in)
		assert.Equal(t, 2025, got.Year(), in)
	}

	_, err = parseDueDate(s("30/06/2025"))
	var reqErr *RequestError
	assert.ErrorAs(t, err, &reqErr)
}

func TestParseID(t *testing.T) {
	id, ok := parseID("12")
	assert.True(t, ok)
	assert.Equal(t, uint(12), id)

	for _, in := range []string{"0", "-1", "abc", ""} {
		_, ok = parseID(in)
		assert.False(t, ok, in)
	}
}

func TestStatusAndMessageFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", badRequest("name is required"), http.StatusBadRequest, "name is required"},
		{"user not found", store.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{"wrapped task not found", fmt.Errorf("load: %w", store.ErrTaskNotFound), http.StatusNotFound, "task not found"},
		{"assignment not found", store.ErrAssignmentNotFound, http.StatusNotFound, "assignment not found"},
		{"duplicate", store.ErrAssignmentExists, http.StatusBadRequest, "task is already assigned to this user"},
		{"infrastructure", errors.New("database is locked"), http.StatusInternalServerError, "server error while doing it"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, statusFor(tt.err))
			assert.Equal(t, tt.wantMsg, messageFor(tt.err, "doing it"))
		})
	}
}
