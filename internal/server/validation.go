package server

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	maxNameLength     = 20
	maxPromptLength   = 140
	maxPhotoURLLength = 2048
)

func validateName(name string) (string, error) {
	return validateText("name", name, maxNameLength)
}

func validatePrompt(text string) (string, error) {
	return validateText("prompt", text, maxPromptLength)
}

// validatePhotoURL accepts an absolute http(s) URL. The server stores the
// string only; image bytes live in external blob storage.
func validatePhotoURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("photo_url is required")
	}
	if len(trimmed) > maxPhotoURLLength {
		return "", fmt.Errorf("photo_url must be %d characters or fewer", maxPhotoURLLength)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", errors.New("photo_url is not a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("photo_url must be an http or https URL")
	}
	if parsed.Host == "" {
		return "", errors.New("photo_url must be an absolute URL")
	}
	return trimmed, nil
}

func validateJoinCode(raw string) (string, error) {
	code := normalizeJoinCode(raw)
	if !isJoinCode(code) {
		return "", errors.New("join code is invalid")
	}
	return code, nil
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len(trimmed) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", label)
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if r > 127 {
			return false
		}
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '"', '.', ',', '!', '?', ':', ';', '&', '(', ')', '/':
			continue
		default:
			return false
		}
	}
	return true
}
