package usecase

import (
	"regexp"
	"strings"

	"marketplace-forfait-service/internal/domain"
)

// Cameroonian mobile numbers: 9 digits starting with 6 (62 Nexttel, 65-69
// MTN/Orange), optionally preceded by the 237 country code.
var msisdnLocal = regexp.MustCompile(`^6[25-9]\d{7}$`)

// NormalizeMSISDN validates a Cameroonian mobile number and returns it in the
// 237XXXXXXXXX form the gateway expects. Whitespace and a leading "+" are
// stripped before validation.
func NormalizeMSISDN(raw string) (string, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-':
			return -1
		}
		return r
	}, raw)
	s = strings.TrimPrefix(s, "+")
	s = strings.TrimPrefix(s, "237")
	if !msisdnLocal.MatchString(s) {
		return "", domain.ErrInvalidPhone
	}
	return "237" + s, nil
}
