package services

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/dmitrijs2005/feedhub/internal/common"
	"golang.org/x/crypto/bcrypt"
)

const (
	titleMinLen       = 1
	titleMaxLen       = 20
	descriptionMaxLen = 200
	passwordMinLen    = 6
	passwordMaxBytes  = 72 // bcrypt input limit
	nameMaxLen        = 50
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*@[A-Za-z0-9_.-]+\.[A-Za-z0-9]+$`)

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// validatePost checks lengths in characters, not bytes.
func validatePost(title, description string) error {
	if n := utf8.RuneCountInString(title); n < titleMinLen || n > titleMaxLen {
		return fmt.Errorf("%w: title must be %d-%d characters", common.ErrorValidation, titleMinLen, titleMaxLen)
	}
	if utf8.RuneCountInString(description) > descriptionMaxLen {
		return fmt.Errorf("%w: description must be at most %d characters", common.ErrorValidation, descriptionMaxLen)
	}
	return nil
}

func validateName(name string) error {
	if n := utf8.RuneCountInString(name); n == 0 || n > nameMaxLen {
		return fmt.Errorf("%w: name must be 1-%d characters", common.ErrorValidation, nameMaxLen)
	}
	return nil
}

// validNewPassword reports whether the pair may replace the current password.
func validNewPassword(password, check string) bool {
	return password != "" && password == check && validPasswordLength(password)
}

// validPasswordLength bounds characters from below and bytes from above.
func validPasswordLength(password string) bool {
	return utf8.RuneCountInString(password) >= passwordMinLen && len(password) <= passwordMaxBytes
}

// bcrypt seams for tests.
var (
	hashPassword = func(password string, cost int) (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		return string(b), err
	}
	comparePassword = func(hash, password string) error {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	}
)
