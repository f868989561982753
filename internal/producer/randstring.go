package producer

import (
	"fmt"
	"math/rand/v2"

	"github.com/cuongbtq/queue-producer/internal/producer/domain"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ValidateRange checks string length bounds before anything is generated
func ValidateRange(minLength, maxLength int) error {
	if minLength < 0 {
		return fmt.Errorf("%w: min %d must not be negative", domain.ErrInvalidRange, minLength)
	}
	if maxLength > domain.MaxStringLength {
		return fmt.Errorf("%w: max %d exceeds the limit of %d", domain.ErrInvalidRange, maxLength, domain.MaxStringLength)
	}
	if minLength > maxLength {
		return fmt.Errorf("%w: min %d is greater than max %d", domain.ErrInvalidRange, minLength, maxLength)
	}
	return nil
}

// RandomString returns an alphanumeric string whose length is drawn uniformly from [minLength, maxLength]
func RandomString(minLength, maxLength int) (string, error) {
	if err := ValidateRange(minLength, maxLength); err != nil {
		return "", err
	}

	n := minLength + rand.IntN(maxLength-minLength+1)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rand.IntN(len(alphanumeric))]
	}
	return string(b), nil
}
