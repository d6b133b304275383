package validation

import "regexp"

const (
	// Amount limits in XAF
	MinPaymentAmount = 100
	MaxPaymentAmount = 5000000

	MaxDescriptionLength = 500
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{9,15}$`)
