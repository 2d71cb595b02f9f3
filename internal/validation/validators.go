package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/petrhale/focustrack/internal/models"
)

// Validate is the shared validator instance used by request handlers.
var Validate *validator.Validate

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("color_token", validateColorToken); err != nil {
		panic(fmt.Sprintf("failed to register color_token validator: %v", err))
	}
}

func validatePriority(fl validator.FieldLevel) bool {
	switch models.Priority(fl.Field().String()) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	default:
		return false
	}
}

func validateColorToken(fl validator.FieldLevel) bool {
	return colorPattern.MatchString(fl.Field().String())
}

// ValidatePriority validates a priority string value.
func ValidatePriority(value string) error {
	switch models.Priority(value) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return nil
	default:
		return fmt.Errorf("invalid priority: %s (must be 'low', 'medium', or 'high')", value)
	}
}

// ValidateStatusFilter validates a task list status filter value.
func ValidateStatusFilter(value string) error {
	switch value {
	case "all", "completed", "pending":
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'all', 'completed', or 'pending')", value)
	}
}

// ValidateColor validates a category color token.
func ValidateColor(value string) error {
	if !colorPattern.MatchString(value) {
		return fmt.Errorf("invalid color: %s (must be a #rrggbb token)", value)
	}
	return nil
}

// SanitizeText trims whitespace and strips control characters from
// user-supplied text, keeping newlines and tabs.
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
