package utils

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12
)

var ErrInvalidRoomPassword = errors.New("room password must be exactly 6 digits")

var roomPasswordRegex = regexp.MustCompile(`^[0-9]{6}$`)

// ValidateRoomPassword checks the 6 digit room passcode format
func ValidateRoomPassword(password string) error {
	if !roomPasswordRegex.MatchString(password) {
		return ErrInvalidRoomPassword
	}
	return nil
}

// HashRoomPassword hashes a room passcode using bcrypt
func HashRoomPassword(password string) (string, error) {
	if err := ValidateRoomPassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a password with its hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
