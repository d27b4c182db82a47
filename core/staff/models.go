package staff

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/safisha/backend/core"
)

// Roles
const (
	// Admin (back office)
	RoleAdmin        = "admin:"
	RoleAdminOwner   = "admin:owner"
	RoleAdminManager = "admin:manager"

	// Cleaner (field staff)
	RoleCleaner     = "cleaner:"
	RoleCleanerLead = "cleaner:lead"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminManager}
	CleanerRoles = []string{RoleCleaner, RoleCleanerLead}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:   30,
		RoleAdminManager: 29,
		RoleAdmin:        21,

		// Cleaners: 20 - 1
		RoleCleanerLead: 11,
		RoleCleaner:     1,
	}

	Roles = []Role{
		{Name: "Cleaner", Value: RoleCleaner},
		{Name: "Cleaner Lead", Value: RoleCleanerLead},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Manager", Value: RoleAdminManager},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, CleanerRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Employee is a staff member of a company. Email is unique per company.
type Employee struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	CompanyID    string          `json:"company_id" gorm:"size:36;uniqueIndex:uix_employees_company_email;not null"`
	Name         string          `json:"name"`
	Email        string          `json:"email" gorm:"uniqueIndex:uix_employees_company_email"`
	Phone        string          `json:"phone"`
	Roles        []string        `json:"roles" gorm:"serializer:json"`
	HourlyRate   decimal.Decimal `json:"hourly_rate" gorm:"type:numeric(12,2)"`
	Color        string          `json:"color" gorm:"size:9"` // calendar hex color
	IsActive     bool            `json:"is_active"`
	PasswordHash []byte          `json:"-"`
	LastLogin    null.Time       `json:"last_login"`
	CreatedAt    time.Time       `json:"created_at"` // UTC
	UpdatedAt    time.Time       `json:"updated_at"` // UTC
}

func (e *Employee) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	e.PasswordHash = hash
	return nil
}

func (e *Employee) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(e.PasswordHash, []byte(pwd))
}

func (e *Employee) RoleStartsWith(prefix string) bool {
	for _, role := range e.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (e *Employee) IsAdmin() bool {
	return e.RoleStartsWith(RoleAdmin)
}

func (e *Employee) IsCleaner() bool {
	return e.RoleStartsWith(RoleCleaner)
}

// NewEmployee contains information needed to create a new Employee.
type NewEmployee struct {
	Name            string          `json:"name" validate:"required"`
	Email           string          `json:"email" validate:"required,email"`
	Phone           string          `json:"phone"`
	Roles           []string        `json:"roles" validate:"omitempty,allroles"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	Color           string          `json:"color" validate:"omitempty,hexcolor"`
	Password        string          `json:"password" validate:"required"`
	PasswordConfirm string          `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ne *NewEmployee) Validate(ctx context.Context, companyID string, validate *validator.Validate, svc ServiceInterface) error {
	ne.Name = core.CleanString(ne.Name)
	ne.Email = core.CleanString(ne.Email, true /* lower */)
	ne.Phone = core.CleanString(ne.Phone)

	if err := validate.Struct(ne); err != nil {
		return err
	}
	if ne.HourlyRate.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "hourly_rate", Error: "hourly rate cannot be negative"})
	}
	return svc.CheckUniqueness(ctx, companyID, ne.Email)
}

// UpdateEmployee defines what information may be provided to modify an existing Employee.
type UpdateEmployee struct {
	Name            string           `json:"name"`
	Email           string           `json:"email" validate:"omitempty,email"`
	Phone           string           `json:"phone"`
	Roles           []string         `json:"roles" validate:"omitempty,allroles"`
	HourlyRate      *decimal.Decimal `json:"hourly_rate"`
	Color           string           `json:"color" validate:"omitempty,hexcolor"`
	IsActive        *bool            `json:"is_active"`
	Password        string           `json:"password" validate:"omitempty"`
	PasswordConfirm string           `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (ue *UpdateEmployee) Validate(ctx context.Context, orig Employee, validate *validator.Validate, svc ServiceInterface) error {
	name := core.CleanString(ue.Name)
	if name != "" {
		ue.Name = name
	} else {
		ue.Name = orig.Name
	}

	email := core.CleanString(ue.Email, true /* lower */)
	if email != "" {
		ue.Email = email
	} else {
		ue.Email = orig.Email
	}
	ue.Phone = core.CleanString(ue.Phone)

	if err := validate.Struct(ue); err != nil {
		return err
	}
	if ue.HourlyRate != nil && ue.HourlyRate.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "hourly_rate", Error: "hourly rate cannot be negative"})
	}
	return svc.CheckUniqueness(ctx, orig.CompanyID, ue.Email, orig)
}

type ResetEmployeePassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetEmployeePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
