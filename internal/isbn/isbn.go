// Package isbn validates and normalizes ISBN-10 and ISBN-13 identifiers.
package isbn

import (
	"errors"
	"strings"
)

// ErrInvalid is returned for malformed identifiers or bad check digits.
var ErrInvalid = errors.New("invalid isbn")

// Normalize strips hyphens and spaces, upper-cases a trailing x and verifies
// the check digit. The result is 10 or 13 characters long.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r == '-' || r == ' ':
			continue
		case r == 'x':
			b.WriteRune('X')
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	switch len(s) {
	case 10:
		if !valid10(s) {
			return "", ErrInvalid
		}
	case 13:
		if !valid13(s) {
			return "", ErrInvalid
		}
	default:
		return "", ErrInvalid
	}
	return s, nil
}

// Valid reports whether raw normalizes cleanly.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

// To13 converts a normalized ISBN-10 to ISBN-13. ISBN-13 input is returned unchanged.
func To13(s string) (string, error) {
	s, err := Normalize(s)
	if err != nil {
		return "", err
	}
	if len(s) == 13 {
		return s, nil
	}
	body := "978" + s[:9]
	return body + string(check13(body)), nil
}

func valid10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += (10 - i) * v
	}
	return sum%11 == 0
}

func valid13(s string) bool {
	for i := 0; i < 13; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return check13(s[:12]) == s[12]
}

func check13(body string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		v := int(body[i] - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return byte('0' + (10-sum%10)%10)
}
