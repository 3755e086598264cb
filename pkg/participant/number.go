// Package participant derives the human-readable participant number printed on
// credentials and scanned at check-in.
//
// A number is 11 digits: YYMMDD of the registration date, the 2-digit position
// code and a 3-digit sequence.
package participant

import (
	"fmt"
	"time"
)

const (
	// Length is the fixed width of every participant number.
	Length = 11
	// UnknownPositionCode is used when the applied position has no resolvable code.
	UnknownPositionCode = "00"
	// MaxSequence is the largest value the sequence segment can hold.
	MaxSequence = 999
)

// Generate builds the participant number for an applicant. The sequence segment
// is seed mod 1000, so seeds 1000 apart on the same date and position collide.
func Generate(registeredAt time.Time, positionCode string, seed int64) string {
	return registeredAt.Format("060102") + NormalizeCode(positionCode) + fmt.Sprintf("%03d", mod1000(seed))
}

// GenerateScoped builds a participant number from a sequence already scoped to
// (date, position). It refuses sequences that do not fit the 3-digit segment
// instead of wrapping.
func GenerateScoped(registeredAt time.Time, positionCode string, sequence int64) (string, error) {
	if sequence < 0 || sequence > MaxSequence {
		return "", fmt.Errorf("sequence %d out of range 0..%d", sequence, MaxSequence)
	}
	return Generate(registeredAt, positionCode, sequence), nil
}

// NormalizeCode left-pads a 1-2 digit code with zeros. Anything that is not one
// or two ASCII digits resolves to UnknownPositionCode.
func NormalizeCode(code string) string {
	switch len(code) {
	case 1:
		if isDigit(code[0]) {
			return "0" + code
		}
	case 2:
		if isDigit(code[0]) && isDigit(code[1]) {
			return code
		}
	}
	return UnknownPositionCode
}

func mod1000(seed int64) int64 {
	m := seed % 1000
	if m < 0 {
		m += 1000
	}
	return m
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
