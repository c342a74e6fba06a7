package server

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// joinCodeAlphabet drops I and O to avoid look-alike confusion.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"

const joinCodeLength = 4

// newJoinCode draws each character uniformly from the alphabet;
// rand.Int rejection-samples, so the 24-symbol alphabet carries no
// modulo bias.
func newJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	limit := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// normalizeJoinCode upper-cases input; codes are case-insensitive on entry.
func normalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isJoinCode(value string) bool {
	if len(value) != joinCodeLength {
		return false
	}
	for _, r := range value {
		if !strings.ContainsRune(joinCodeAlphabet, r) {
			return false
		}
	}
	return true
}

func newSessionToken() string {
	return uuid.NewString()
}

func intString(n int) string {
	return strconv.Itoa(n)
}
