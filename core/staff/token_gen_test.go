package staff

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
)

func TestMakeVerifyToken(t *testing.T) {
	secretKey = []byte("secret")
	passwordResetTimeoutDelta = 3 * 24 * time.Hour

	now := time.Now()
	emp := Employee{
		ID:        "3c5a9b1e-7a20-4e52-bd19-430a54d5b0a1",
		CompanyID: "a2ff2c8c-dc6a-4a56-8f62-4f54a29b8e11",
		Name:      "T",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: null.TimeFrom(now),
	}
	_ = emp.SetPassword("pwd")

	validToken := MakeToken(emp)

	// generate an expired token
	dayLate := passwordResetTimeoutDelta + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := MakeToken(emp)
	nowFunc = time.Now // reset

	tests := []struct {
		name    string
		emp     Employee
		token   string
		wantErr error
	}{
		{name: "no token", emp: emp, wantErr: errInvalidToken},
		{name: "invalid parts len", emp: emp, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", emp: emp, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", emp: emp, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", emp: emp, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", emp: emp, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", emp: emp, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(tt.emp, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenInvalidatedByUse(t *testing.T) {
	secretKey = []byte("secret")
	passwordResetTimeoutDelta = 3 * 24 * time.Hour

	emp := Employee{ID: "3c5a9b1e-7a20-4e52-bd19-430a54d5b0a1", Name: "T", Email: "t@test.test"}
	_ = emp.SetPassword("pwd")

	token := MakeToken(emp)
	if err := verifyToken(emp, token); err != nil {
		t.Fatalf("verifyToken() error = %v, want nil", err)
	}

	// changing the password invalidates outstanding tokens
	_ = emp.SetPassword("new pwd")
	if err := verifyToken(emp, token); err != errInvalidToken {
		t.Errorf("verifyToken() error = %v, wantErr %v", err, errInvalidToken)
	}
}
