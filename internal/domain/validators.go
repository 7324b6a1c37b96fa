package domain

import (
	"fmt"
	"regexp"
)

var (
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	tableIDRegex  = regexp.MustCompile(`^[a-zA-Z0-9_\-]{1,64}$`)
)

// ValidatePositiveAmount checks that a bet or credit amount is positive.
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}

// ValidateCurrency checks that a currency code is ISO 4217.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return fmt.Errorf("invalid currency code: %s", currency)
	}
	return nil
}

// ValidateTableID checks that a table id is safe to use as a cache key segment.
func ValidateTableID(tableID string) error {
	if !tableIDRegex.MatchString(tableID) {
		return fmt.Errorf("invalid table id")
	}
	return nil
}

// ValidatePlayerSeed bounds the fairness seed a player may supply. Empty is
// allowed; the commitment holds either way since the server seed is fixed first.
func ValidatePlayerSeed(seed string) error {
	if len(seed) > 128 {
		return fmt.Errorf("player seed too long: %d chars, max 128", len(seed))
	}
	return nil
}
