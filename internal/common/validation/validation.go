package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// Discord embed limits
	MaxNameLength        = 256
	MaxDescriptionLength = 4096

	MinNameLength = 1

	MaxWinnerCount = 100
)

// Discord snowflakes are decimal, 17 to 20 digits.
var snowflakeRegex = regexp.MustCompile(`^[0-9]{17,20}$`)

// ValidateName checks a giveaway name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if utf8.RuneCountInString(name) < MinNameLength {
		return fmt.Errorf("name must be at least %d characters long", MinNameLength)
	}

	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("name cannot exceed %d characters", MaxNameLength)
	}

	return nil
}

// ValidateDescription checks an optional giveaway description.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("description cannot exceed %d characters", MaxDescriptionLength)
	}
	return nil
}

// ValidateSnowflake checks a platform id.
func ValidateSnowflake(id, fieldName string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if !snowflakeRegex.MatchString(id) {
		return fmt.Errorf("%s must be a numeric id", fieldName)
	}
	return nil
}

// ValidateSnowflakes checks every id of a list.
func ValidateSnowflakes(ids []string, fieldName string) error {
	for i, id := range ids {
		if err := ValidateSnowflake(id, fmt.Sprintf("%s[%d]", fieldName, i)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateWinnerCount accepts zero, meaning the default count.
func ValidateWinnerCount(n int) error {
	if n < 0 {
		return fmt.Errorf("winner count cannot be negative")
	}
	if n > MaxWinnerCount {
		return fmt.Errorf("winner count cannot exceed %d", MaxWinnerCount)
	}
	return nil
}

// ValidateSchedule checks that exactly one of duration and endsAt is set and
// that it lies in the future.
func ValidateSchedule(duration time.Duration, endsAt, now time.Time) error {
	switch {
	case duration != 0 && !endsAt.IsZero():
		return fmt.Errorf("duration and end time are mutually exclusive")
	case duration == 0 && endsAt.IsZero():
		return fmt.Errorf("either duration or end time is required")
	case duration < 0:
		return fmt.Errorf("duration must be positive")
	case !endsAt.IsZero() && !endsAt.After(now):
		return fmt.Errorf("end time must be in the future")
	}
	return nil
}

// IsValidSnowflake reports whether id looks like a platform id.
func IsValidSnowflake(id string) bool {
	return snowflakeRegex.MatchString(id)
}
