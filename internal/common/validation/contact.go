package validation

import (
	"net/mail"
	"regexp"
)

var mobilePattern = regexp.MustCompile(`^[0-9]{8,15}$`)

// ValidateMobile checks a locally formatted mobile number: digits only, no
// country code.
func ValidateMobile(number string) *ValidationError {
	if number == "" {
		return &ValidationError{Field: "mobile", Message: "mobile number is empty", Code: "REQUIRED_FIELD_MISSING"}
	}
	if !mobilePattern.MatchString(number) {
		return &ValidationError{Field: "mobile", Message: "mobile number must be 8 to 15 digits", Code: "PATTERN_MISMATCH"}
	}
	return nil
}

// ValidateEmail accepts an empty address, which callers render as a dash.
func ValidateEmail(address string) *ValidationError {
	if address == "" {
		return nil
	}
	if _, err := mail.ParseAddress(address); err != nil {
		return &ValidationError{Field: "email", Message: err.Error(), Code: "INVALID_FORMAT"}
	}
	return nil
}
