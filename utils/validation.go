package utils

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MaxFilenameLength is the longest file name the editor accepts.
const MaxFilenameLength = 30

// ReservedFilenames cannot be written by a metered save.
var ReservedFilenames = []string{"default", "Untitled"}

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9- ]*$`)

// Filename rule violations, in the order they are checked.
var (
	ErrFilenameReserved = errors.New("Cannot update default file!")
	ErrFilenameEmpty    = errors.New("Filename cannot be empty")
	ErrFilenameTooLong  = errors.New("Filename too long")
	ErrFilenameChars    = errors.New("Special Characters cannot be used")
)

type filenameInput struct {
	Name string `validate:"required,max=30,filename_chars"`
}

// ValidateAmount checks if an amount string is a valid non-negative decimal
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if strings.TrimSpace(amount) == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ToBaseUnits converts a display amount to the token's smallest unit. Digits
// beyond decimals are truncated.
func ToBaseUnits(amount decimal.Decimal, decimals int) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}

// FromBaseUnits converts a base-unit integer to a display amount.
func FromBaseUnits(amount *big.Int, decimals int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// ParseAmountWithDecimals parses a decimal amount string and converts to big.Int with specified decimals
func ParseAmountWithDecimals(amount string, decimals int) (*big.Int, error) {
	dec, err := ValidateAmount(amount)
	if err != nil {
		return nil, err
	}
	return ToBaseUnits(*dec, decimals), nil
}

// FormatAmountFromBigInt renders a base-unit amount in display units, e.g.
// for log fields.
func FormatAmountFromBigInt(amount *big.Int, decimals int) string {
	return FromBaseUnits(amount, decimals).String()
}

// ValidateFilename applies the editor's naming rules to a trimmed name. It
// does not check whether the name is already taken; that needs the store.
func ValidateFilename(name string) error {
	name = strings.TrimSpace(name)
	for _, reserved := range ReservedFilenames {
		if name == reserved {
			return ErrFilenameReserved
		}
	}

	err := validate.Struct(filenameInput{Name: name})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Tag() {
	case "required":
		return ErrFilenameEmpty
	case "max":
		return ErrFilenameTooLong
	default:
		return ErrFilenameChars
	}
}

func validateFilenameChars(fl validator.FieldLevel) bool {
	return filenamePattern.MatchString(fl.Field().String())
}
