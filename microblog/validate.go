package microblog

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const MaxBodyLength = 140

// ValidatePost checks the body and returns the author to store.
func ValidatePost(author string, body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("body can't be blank: %w", ErrValidation)
	}
	if n := utf8.RuneCountInString(body); n > MaxBodyLength {
		return "", fmt.Errorf("body is too long (%d characters, maximum is %d): %w", n, MaxBodyLength, ErrValidation)
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = DefaultAuthor
	}
	return author, nil
}
