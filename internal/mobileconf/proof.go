// Package mobileconf implements the mobile confirmation channel: the
// time-based confirmation hash, the device identifier, the parser for the
// confirmation listing page and the accept/deny actions.
package mobileconf

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// GenerateConfirmationHash returns base64(HMAC-SHA1(secret, be64(t) || tag)).
// t is the estimated server time in epoch seconds.
func GenerateConfirmationHash(t int64, tag string, secret []byte) string {
	msg := make([]byte, 8, 8+len(tag))
	binary.BigEndian.PutUint64(msg, uint64(t))
	msg = append(msg, tag...)

	mac := hmac.New(sha1.New, secret)
	mac.Write(msg)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// DecodeIdentitySecret decodes the base64 identity_secret.
func DecodeIdentitySecret(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("mobileconf: decode identity secret: %w", err)
	}
	return b, nil
}

// DeviceID derives "android:xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx" from the
// SHA-1 of the decimal SteamID64. Only the first 16 bytes of the hash are
// used.
func DeviceID(steamID uint64) string {
	sum := sha1.Sum([]byte(strconv.FormatUint(steamID, 10)))
	id, _ := uuid.FromBytes(sum[:16])
	return "android:" + id.String()
}
