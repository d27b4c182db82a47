package echoapi

import (
	"context"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/customer"
	"github.com/safisha/backend/core/staff"
)

// A staff token and a portal token are never interchangeable: each carries its
// own audience and each middleware parses into its own claims type, whose
// Validate rejects the other audience.
const (
	jwtAudienceStaff  = "staff"
	jwtAudiencePortal = "portal"

	jwtContextKey       = "userToken"
	portalJWTContextKey = "portalToken"

	contextEmployeeKey = "employee"
	contextCustomerKey = "customer"
)

var errTokenAudience = errors.New("unexpected token audience")

// Claims represents the authorization claims transmitted via a staff JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	CompanyID    string   `json:"company_id,omitempty"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"` // -> BACK OFFICE
	Roles        []string `json:"roles,omitempty"`
}

func (c *Claims) Validate() error {
	for _, aud := range c.Audience {
		if aud == jwtAudienceStaff {
			return nil
		}
	}
	return errTokenAudience
}

// PortalClaims represents the authorization claims transmitted via a customer
// portal JWT.
type PortalClaims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
}

func (c *PortalClaims) Validate() error {
	for _, aud := range c.Audience {
		if aud == jwtAudiencePortal {
			return nil
		}
	}
	return errTokenAudience
}

func newStaffJWTConfig(conf *core.Config) echojwt.Config {
	return echojwt.Config{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(Claims) },
	}
}

func newPortalJWTConfig(conf *core.Config) echojwt.Config {
	return echojwt.Config{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    portalJWTContextKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(PortalClaims) },
	}
}

func GetEmployeeClaims(conf *core.Config, emp staff.Employee, origIat ...int64) *Claims {
	now := time.Now()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = now.Unix()
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   emp.ID,
			Audience:  jwt.ClaimStrings{jwtAudienceStaff},
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		CompanyID:    emp.CompanyID,
		Name:         emp.Name,
		Email:        emp.Email,
		IsAdmin:      emp.IsAdmin(),
		Roles:        emp.Roles,
	}
	return claims
}

func GetCustomerClaims(conf *core.Config, cust customer.Customer) *PortalClaims {
	now := time.Now()
	claims := &PortalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   cust.ID,
			Audience:  jwt.ClaimStrings{jwtAudiencePortal},
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.PortalJWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		CompanyID: cust.CompanyID,
		Name:      cust.Name,
		Email:     cust.Email,
	}
	return claims
}

// authenticate checks the password against every account registered under the
// email; the same address may be staff in more than one company.
func authenticate(ctx context.Context, email, pwd string, svc staff.ServiceInterface, conf *core.Config) (*Claims, error) {
	emps, err := svc.FindByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "finding employees by email")
	}
	for i := range emps {
		emp := emps[i]
		if emp.CheckPassword(pwd) != nil {
			continue
		}
		if !emp.IsActive {
			return nil, errAccountDeactivated
		}
		emp, err = svc.SetLastLogin(ctx, emp)
		if err != nil {
			return nil, errors.Wrap(err, "setting lastLogin")
		}
		return GetEmployeeClaims(conf, emp), nil
	}
	return nil, errAuthenticationFailed
}

// GenerateToken generates a signed JWT token string representing the claims.
func GenerateToken(conf *core.Config, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextPortalClaims(ctx echo.Context) (PortalClaims, error) {
	if token, ok := ctx.Get(portalJWTContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*PortalClaims); ok {
			return *claims, nil
		}
	}
	return PortalClaims{}, errUnauthorized
}

func getContextEmployee(ctx echo.Context, svc staff.ServiceInterface, clms ...Claims) (staff.Employee, error) {
	if emp, ok := ctx.Get(contextEmployeeKey).(staff.Employee); ok {
		return emp, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return staff.Employee{}, errors.Wrap(err, "getting context claims")
		}
	}

	emp, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return staff.Employee{}, errors.Wrap(err, "finding employee by ID")
	}
	ctx.Set(contextEmployeeKey, emp)
	return emp, nil
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		sort.Strings(claims.Roles)
		for _, role := range roles {
			if i := sort.SearchStrings(claims.Roles, role); i < len(claims.Roles) {
				if match := claims.Roles[i]; role == match {
					return true
				}
			}
		}
	}
	return false
}

func refreshToken(ctx echo.Context, svc staff.ServiceInterface, conf *core.Config) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	emp, err := getContextEmployee(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context employee")
	}

	// check if employee is still active
	if !emp.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetEmployeeClaims(conf, emp, claims.OrigIssuedAt)
	token, err := GenerateToken(conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
