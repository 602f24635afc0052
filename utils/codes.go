package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

// GenerateCouponCode builds a human-readable coupon code from the first letters
// of the customer's name plus a random numeric suffix, e.g. "MARIA4821".
// Uniqueness is enforced by the database; callers retry on collision.
func GenerateCouponCode(customerName string) string {
	var prefix strings.Builder
	count := 0
	for _, r := range customerName {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			prefix.WriteRune(unicode.ToUpper(r))
			count++
			if count >= 5 {
				break
			}
		}
	}
	if count == 0 {
		prefix.WriteString("GUEST")
	}
	return fmt.Sprintf("%s%04d", prefix.String(), rand.Intn(10000))
}
