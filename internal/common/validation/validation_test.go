package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: "Nitro Classic"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "at limit", input: strings.Repeat("ä", MaxNameLength)},
		{name: "too long", input: strings.Repeat("a", MaxNameLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDescription(t *testing.T) {
	assert.NoError(t, ValidateDescription(""))
	assert.Error(t, ValidateDescription(strings.Repeat("x", MaxDescriptionLength+1)))
}

func TestValidateSnowflake(t *testing.T) {
	assert.NoError(t, ValidateSnowflake("80351110224678912", "user_id"))
	assert.Error(t, ValidateSnowflake("", "user_id"))
	assert.Error(t, ValidateSnowflake("abc", "user_id"))
	assert.Error(t, ValidateSnowflake("123", "user_id"))

	err := ValidateSnowflakes([]string{"80351110224678912", "x"}, "rigged_user_ids")
	assert.ErrorContains(t, err, "rigged_user_ids[1]")
	assert.True(t, IsValidSnowflake("1234567890123456789"))
}

func TestValidateWinnerCount(t *testing.T) {
	assert.NoError(t, ValidateWinnerCount(0))
	assert.NoError(t, ValidateWinnerCount(3))
	assert.Error(t, ValidateWinnerCount(-1))
	assert.Error(t, ValidateWinnerCount(MaxWinnerCount+1))
}

func TestValidateSchedule(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		duration time.Duration
		endsAt   time.Time
		wantErr  bool
	}{
		{name: "duration", duration: time.Second},
		{name: "future end", endsAt: now.Add(time.Hour)},
		{name: "neither", wantErr: true},
		{name: "both", duration: time.Second, endsAt: now.Add(time.Hour), wantErr: true},
		{name: "negative duration", duration: -time.Second, wantErr: true},
		{name: "past end", endsAt: now.Add(-time.Second), wantErr: true},
		{name: "end now", endsAt: now, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.duration, tt.endsAt, now)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
