package validate

import (
	"errors"
	"regexp"
	"strings"
)

// Document validation errors
var (
	ErrInvalidCPF  = errors.New("invalid CPF")
	ErrInvalidCNPJ = errors.New("invalid CNPJ")
)

// nonDigits strips formatting characters commonly present in Brazilian
// documents (123.456.789-09, 12.345.678/0001-95).
var nonDigits = regexp.MustCompile(`[^0-9]`)

// CPF validates a Brazilian individual taxpayer number (CPF).
// Accepts both formatted (123.456.789-09) and bare (12345678909) input and
// returns the normalized 11-digit form.
func CPF(cpf string) (string, error) {
	digits := nonDigits.ReplaceAllString(strings.TrimSpace(cpf), "")
	if len(digits) != 11 {
		return "", ErrInvalidCPF
	}
	if allSameDigit(digits) {
		// 000.000.000-00 through 999.999.999-99 pass the checksum but are
		// not valid documents.
		return "", ErrInvalidCPF
	}

	if digitAt(digits, 9) != cpfCheckDigit(digits, 9) {
		return "", ErrInvalidCPF
	}
	if digitAt(digits, 10) != cpfCheckDigit(digits, 10) {
		return "", ErrInvalidCPF
	}
	return digits, nil
}

// CNPJ validates a Brazilian company registration number (CNPJ).
// Accepts both formatted (12.345.678/0001-95) and bare (12345678000195)
// input and returns the normalized 14-digit form.
func CNPJ(cnpj string) (string, error) {
	digits := nonDigits.ReplaceAllString(strings.TrimSpace(cnpj), "")
	if len(digits) != 14 {
		return "", ErrInvalidCNPJ
	}
	if allSameDigit(digits) {
		return "", ErrInvalidCNPJ
	}

	if digitAt(digits, 12) != cnpjCheckDigit(digits, 12) {
		return "", ErrInvalidCNPJ
	}
	if digitAt(digits, 13) != cnpjCheckDigit(digits, 13) {
		return "", ErrInvalidCNPJ
	}
	return digits, nil
}

// FormatCPF renders a normalized 11-digit CPF as 123.456.789-09.
// Input that is not 11 digits is returned unchanged.
func FormatCPF(digits string) string {
	if len(digits) != 11 {
		return digits
	}
	return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11]
}

// FormatCNPJ renders a normalized 14-digit CNPJ as 12.345.678/0001-95.
// Input that is not 14 digits is returned unchanged.
func FormatCNPJ(digits string) string {
	if len(digits) != 14 {
		return digits
	}
	return digits[0:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:14]
}

func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

func digitAt(digits string, i int) int {
	return int(digits[i] - '0')
}

// cpfCheckDigit computes the CPF check digit at position pos (9 or 10)
// using the standard mod-11 weighting over the preceding digits.
func cpfCheckDigit(digits string, pos int) int {
	sum := 0
	weight := pos + 1
	for i := 0; i < pos; i++ {
		sum += digitAt(digits, i) * weight
		weight--
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

// cnpjCheckDigit computes the CNPJ check digit at position pos (12 or 13).
// Weights run 5,4,3,2,9,8,...,2 for the first digit and 6,5,4,3,2,9,...,2
// for the second.
func cnpjCheckDigit(digits string, pos int) int {
	weight := pos - 7 // 5 for pos 12, 6 for pos 13
	sum := 0
	for i := 0; i < pos; i++ {
		sum += digitAt(digits, i) * weight
		weight--
		if weight < 2 {
			weight = 9
		}
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}
