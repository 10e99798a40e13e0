package user

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

var nowFunc = time.Now // mockable

// makeToken generates a random magic-link/verification token.
// The raw value is emailed to the user; only the hash is stored.
func makeToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, hashToken(raw), nil
}

// makeOTP generates a 6-digit one-time code.
func makeOTP() (otp, hash string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", "", err
	}
	otp = fmt.Sprintf("%06d", n.Int64()+100000)
	return otp, hashToken(otp), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
