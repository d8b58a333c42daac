package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy/internal/apperr"
)

type groupInput struct {
	Name     string `json:"name" binding:"notblank"`
	Schedule string `json:"schedule" binding:"schedule"`
	Day      string `json:"day" binding:"omitempty,weekday"`
	Theme    string `json:"theme" binding:"omitempty,oneof=light dark system"`
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, Struct(groupInput{Name: "Juniors", Schedule: "mon:16:00:18:00|thu:17:30", Day: "Friday"}))
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(groupInput{Name: "  ", Schedule: "mon:25:00", Day: "funday", Theme: "neon"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "name cannot be blank", ae.Metadata["name"])
	assert.Contains(t, ae.Metadata["schedule"], "schedule is not a valid schedule")
	assert.Equal(t, "day must be a weekday name", ae.Metadata["day"])
	assert.Contains(t, ae.Metadata["theme"], "theme must be one of")
}

func TestTranslateNonValidationError(t *testing.T) {
	err := Translate(errors.New("unexpected EOF"))
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	assert.Contains(t, err.Error(), "unexpected EOF")
}
