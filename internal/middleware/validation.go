package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxMessageBytes = 10000

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("Mesaj boş olamaz")
	}
	if len(content) > maxMessageBytes {
		return errors.New("Mesaj çok uzun")
	}
	if !utf8.ValidString(content) {
		return errors.New("Mesaj geçerli UTF-8 olmalı")
	}
	return nil
}

// ValidateID validates a server-assigned identifier.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("Geçersiz kimlik")
	}
	return nil
}
