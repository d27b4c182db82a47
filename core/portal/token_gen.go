package portal

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/safisha/backend/core/customer"
)

var (
	salt    = []byte("safisha.backend.core.portal.token_gen")
	nowFunc = time.Now // mockable

	// set once by NewService
	secretKey              []byte
	loginTokenTimeoutDelta time.Duration

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID base64 encodes given Customer ID
func EncodeUID(cust customer.Customer) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cust.ID))
}

// decodeUID base64 decodes given UID
func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// MakeLoginToken generates a magic-link login token for a given Customer.
// The token is bound to the customer's email and expires after the portal
// login window; unlike the one-time code it carries no server-side state.
func MakeLoginToken(cust customer.Customer) string {
	return makeTokenWithTimestamp(cust, numMinutesSince2001(nowFunc()))
}

// verifyLoginToken checks that a login token for a given Customer is valid.
func verifyLoginToken(cust customer.Customer, token string) error {
	if token == "" {
		return errInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}
	tsB32 := parts[0]

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(tsB32)
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	newToken := makeTokenWithTimestamp(cust, ts)
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if (numMinutesSince2001(time.Now()) - ts) > int(loginTokenTimeoutDelta/time.Minute) {
		return errTokenExpired
	}
	return nil
}

func makeTokenWithTimestamp(cust customer.Customer, ts int) string {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, sign(hashValue(cust, ts)))
}

func numMinutesSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Minutes()))
}

func sign(val []byte) string {
	key := sha256.Sum256(append(salt, secretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func hashValue(cust customer.Customer, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(cust.ID)
	val.WriteString(cust.Email)
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
