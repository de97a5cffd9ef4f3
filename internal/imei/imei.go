// Package imei generates and validates IMEI equipment identifiers:
// 8-digit TAC + 6-digit serial + Luhn check digit, 15 digits in total.
package imei

import (
	"fmt"
	"math/rand"
)

// tacPrefixes are type allocation codes of common handset manufacturers.
var tacPrefixes = []string{
	"35209806", // Samsung
	"35328308", // Apple iPhone
	"35891807", // Huawei
	"35404907", // Xiaomi
	"35875608", // OnePlus
	"35316509", // LG
	"35434006", // Sony
	"35699908", // Nokia
}

// Generate returns a random, checksum-valid IMEI.
func Generate() string {
	tac := tacPrefixes[rand.Intn(len(tacPrefixes))]
	snr := fmt.Sprintf("%06d", rand.Intn(1000000))
	body := tac + snr
	return body + luhnCheckDigit(body)
}

// Valid reports whether imei is 15 digits with a correct Luhn check digit.
func Valid(imei string) bool {
	if len(imei) != 15 {
		return false
	}
	for _, r := range imei {
		if r < '0' || r > '9' {
			return false
		}
	}
	return imei[14:] == luhnCheckDigit(imei[:14])
}

// luhnCheckDigit computes the digit that makes the Luhn sum of digits+digit
// divisible by 10. Digits are processed right to left, doubling alternates.
func luhnCheckDigit(digits string) string {
	sum := 0
	alternate := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if alternate {
			d *= 2
			if d > 9 {
				d = d%10 + 1
			}
		}
		sum += d
		alternate = !alternate
	}
	return fmt.Sprintf("%d", (10-sum%10)%10)
}
