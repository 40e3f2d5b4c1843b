package handlers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"newsforge/services"
)

const (
	topicMinLen = 3
	topicMaxLen = 500
	emailMaxLen = 254
)

// Topics are interpolated into model prompts, so anything that smells
// like markup injection is rejected outright.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)<(iframe|object|embed)`),
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func ValidateTopic(topic string) error {
	topic = strings.TrimSpace(topic)
	// Bounds are characters, not bytes; multibyte topics count per rune.
	length := utf8.RuneCountInString(topic)
	if length < topicMinLen {
		return fmt.Errorf("topic must be at least %d characters", topicMinLen)
	}
	if length > topicMaxLen {
		return fmt.Errorf("topic must be at most %d characters", topicMaxLen)
	}
	for _, p := range injectionPatterns {
		if p.MatchString(topic) {
			return fmt.Errorf("topic contains disallowed content")
		}
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > emailMaxLen {
		return fmt.Errorf("email must be at most %d characters", emailMaxLen)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

func ValidateStyle(style string) error {
	switch style {
	case "professional", "casual", "technical":
		return nil
	}
	return fmt.Errorf("style must be one of professional, casual, technical")
}

func ValidateFormat(format string) error {
	switch format {
	case services.FormatHTML, services.FormatText, services.FormatBoth:
		return nil
	}
	return fmt.Errorf("format must be one of html, text, both")
}

func ValidateSchedule(schedule string) error {
	if services.IsValidSchedule(schedule) {
		return nil
	}
	return fmt.Errorf("schedule must be one of %s", strings.Join(services.ValidSchedules, ", "))
}
