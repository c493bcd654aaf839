package models

import (
	"crypto/rand"
	"strings"
)

const ShortCodeLen = 6

// без 0/O и 1/I, длина 32 делит 256 без остатка
const shortCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func NewShortCode() string {
	b := make([]byte, ShortCodeLen)
	_, _ = rand.Read(b)

	for i := range b {
		b[i] = shortCodeAlphabet[int(b[i])%len(shortCodeAlphabet)]
	}

	return string(b)
}

// NormalizeShortCode приводит пользовательский ввод к виду кода.
// Возвращает false, если строка не может быть кодом.
func NormalizeShortCode(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != ShortCodeLen {
		return "", false
	}

	for _, r := range s {
		if !strings.ContainsRune(shortCodeAlphabet, r) {
			return "", false
		}
	}

	return s, true
}
