package domain

import (
	"fmt"
	"strings"
)

// Belt is a rank colour as named by the ledger backend.
type Belt string

const (
	BeltWhite       Belt = "White"
	BeltBlue        Belt = "Blue"
	BeltPurple      Belt = "Purple"
	BeltBrown       Belt = "Brown"
	BeltBlack       Belt = "Black"
	BeltBlack1      Belt = "Black1"
	BeltBlack2      Belt = "Black2"
	BeltBlack3      Belt = "Black3"
	BeltBlack4      Belt = "Black4"
	BeltBlack5      Belt = "Black5"
	BeltBlack6      Belt = "Black6"
	BeltRedAndBlack Belt = "RedAndBlack"
	BeltRedAndWhite Belt = "RedAndWhite"
	BeltRed         Belt = "Red"
	BeltRed10       Belt = "Red10"
)

var beltOrder = []Belt{
	BeltWhite, BeltBlue, BeltPurple, BeltBrown, BeltBlack,
	BeltBlack1, BeltBlack2, BeltBlack3, BeltBlack4, BeltBlack5, BeltBlack6,
	BeltRedAndBlack, BeltRedAndWhite, BeltRed, BeltRed10,
}

// Belts returns every belt from lowest to highest.
func Belts() []Belt {
	return append([]Belt(nil), beltOrder...)
}

// Level is the zero-based position of the belt in the ranking, or -1 when unknown.
func (b Belt) Level() int {
	for i, candidate := range beltOrder {
		if candidate == b {
			return i
		}
	}
	return -1
}

// Valid reports whether the belt is one the ledger accepts.
func (b Belt) Valid() bool {
	return b.Level() >= 0
}

// Compare orders two belts by rank.
func (b Belt) Compare(other Belt) int {
	return b.Level() - other.Level()
}

// DisplayName renders the belt for humans, e.g. "Black 3" or "Red & White".
func (b Belt) DisplayName() string {
	switch {
	case b == BeltRedAndBlack:
		return "Red & Black"
	case b == BeltRedAndWhite:
		return "Red & White"
	case b != BeltBlack && strings.HasPrefix(string(b), string(BeltBlack)):
		return fmt.Sprintf("Black %s", strings.TrimPrefix(string(b), string(BeltBlack)))
	case b == BeltRed10:
		return "Red 10"
	default:
		return string(b)
	}
}

// ParseBelt accepts a belt name case-insensitively.
func ParseBelt(s string) (Belt, error) {
	for _, b := range beltOrder {
		if strings.EqualFold(string(b), strings.TrimSpace(s)) {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown belt %q", s)
}
