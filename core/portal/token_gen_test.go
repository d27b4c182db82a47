package portal

import (
	"testing"
	"time"

	"github.com/safisha/backend/core/customer"
)

func TestMakeVerifyLoginToken(t *testing.T) {
	secretKey = []byte("secret")
	loginTokenTimeoutDelta = 15 * time.Minute

	cust := customer.Customer{
		ID:        "9d62f1aa-5a7e-4a9a-9c50-2e0a8b44c3d7",
		CompanyID: "a2ff2c8c-dc6a-4a56-8f62-4f54a29b8e11",
		Name:      "T",
		Email:     "t@test.test",
		IsActive:  true,
	}

	validToken := MakeLoginToken(cust)

	// generate an expired token
	hourLate := loginTokenTimeoutDelta + time.Hour
	nowFunc = func() time.Time { return time.Now().Add(-hourLate) }
	expiredToken := MakeLoginToken(cust)
	nowFunc = time.Now // reset

	tests := []struct {
		name    string
		cust    customer.Customer
		token   string
		wantErr error
	}{
		{name: "no token", cust: cust, wantErr: errInvalidToken},
		{name: "invalid parts len", cust: cust, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", cust: cust, token: "hahaha-sigsig", wantErr: errInvalidToken},
		{name: "invalid timestamp", cust: cust, token: "NRXWY-sigsig", wantErr: errInvalidToken},
		{name: "invalid token", cust: cust, token: "HE4TS-sigsig", wantErr: errInvalidToken},
		{name: "expired token", cust: cust, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", cust: cust, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyLoginToken(tt.cust, tt.token); err != tt.wantErr {
				t.Errorf("verifyLoginToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoginTokenBoundToEmail(t *testing.T) {
	secretKey = []byte("secret")
	loginTokenTimeoutDelta = 15 * time.Minute

	cust := customer.Customer{ID: "9d62f1aa-5a7e-4a9a-9c50-2e0a8b44c3d7", Name: "T", Email: "t@test.test"}

	token := MakeLoginToken(cust)
	if err := verifyLoginToken(cust, token); err != nil {
		t.Fatalf("verifyLoginToken() error = %v, want nil", err)
	}

	// changing the email invalidates outstanding links
	cust.Email = "other@test.test"
	if err := verifyLoginToken(cust, token); err != errInvalidToken {
		t.Errorf("verifyLoginToken() error = %v, wantErr %v", err, errInvalidToken)
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	cust := customer.Customer{ID: "9d62f1aa-5a7e-4a9a-9c50-2e0a8b44c3d7"}

	id, err := decodeUID(EncodeUID(cust))
	if err != nil {
		t.Fatalf("decodeUID() error = %v", err)
	}
	if id != cust.ID {
		t.Errorf("decodeUID() = %q; want %q", id, cust.ID)
	}

	if _, err = decodeUID("%%%"); err == nil {
		t.Error("decodeUID() accepted garbage")
	}
}
