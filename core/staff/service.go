package staff

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/safisha/backend/core"
)

var (
	// errors
	ErrNotFound    = errors.New("employee not found")
	ErrEmailExists = errors.New("an employee with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, companyID, email string, excludedEmployees ...Employee) error
		CreateEmployee(ctx context.Context, emp Employee) (Employee, error)
		GetEmployeeByID(ctx context.Context, id string) (Employee, error)
		FindEmployeesByEmail(ctx context.Context, email string) ([]Employee, error)
		// FilterEmployees applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Employee.Name or Employee.Email.
		FilterEmployees(ctx context.Context, companyID string, filter QueryFilter, orderings []core.DBOrdering) ([]Employee, error)
		UpdateEmployee(ctx context.Context, emp Employee) (Employee, error)
		DeleteEmployeesByID(ctx context.Context, companyID string, ids ...string) error
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, companyID, email string, excludedEmployees ...Employee) error
		Create(ctx context.Context, companyID string, ne NewEmployee) (Employee, error)
		Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Employee, error)
		GetByID(ctx context.Context, id string) (Employee, error)
		FindByEmail(ctx context.Context, email string) ([]Employee, error)
		SetLastLogin(ctx context.Context, emp Employee) (Employee, error)
		Update(ctx context.Context, id string, ue UpdateEmployee) (Employee, error)
		Delete(ctx context.Context, companyID string, ids ...string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetEmployeePassword) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, companyID, email string, excludedEmployees ...Employee) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, companyID, email, excludedEmployees...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, companyID string, ne NewEmployee) (Employee, error) {
	now := time.Now().UTC()
	roles := ne.Roles
	if len(roles) == 0 {
		roles = []string{RoleCleaner}
	}
	emp := Employee{
		CompanyID:  companyID,
		Name:       ne.Name,
		Email:      ne.Email,
		Phone:      ne.Phone,
		Roles:      roles,
		HourlyRate: ne.HourlyRate,
		Color:      ne.Color,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := emp.SetPassword(ne.Password); err != nil {
		return Employee{}, err
	}
	emp, err := svc.repo.CreateEmployee(ctx, emp)
	if err != nil {
		return Employee{}, err
	}
	svc.sendWelcomeMail(emp)
	return emp, nil
}

func (svc *Service) Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Employee, error) {
	return svc.repo.FilterEmployees(ctx, companyID, *filter, orderings)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Employee, error) {
	return svc.repo.GetEmployeeByID(ctx, id)
}

func (svc *Service) FindByEmail(ctx context.Context, email string) ([]Employee, error) {
	return svc.repo.FindEmployeesByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) SetLastLogin(ctx context.Context, emp Employee) (Employee, error) {
	emp.LastLogin.SetValid(time.Now().UTC())
	return svc.repo.UpdateEmployee(ctx, emp)
}

func (svc *Service) Update(ctx context.Context, id string, ue UpdateEmployee) (Employee, error) {
	emp, err := svc.repo.GetEmployeeByID(ctx, id)
	if err != nil {
		return Employee{}, err
	}

	emp.Name = ue.Name
	emp.Email = ue.Email
	if ue.Phone != "" {
		emp.Phone = ue.Phone
	}
	if ue.Roles != nil {
		emp.Roles = ue.Roles
	}
	if ue.HourlyRate != nil {
		emp.HourlyRate = *ue.HourlyRate
	}
	if ue.Color != "" {
		emp.Color = ue.Color
	}
	if ue.IsActive != nil {
		emp.IsActive = *ue.IsActive
	}
	if ue.Password != "" {
		if err := emp.SetPassword(ue.Password); err != nil {
			return Employee{}, err
		}
	}
	emp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEmployee(ctx, emp)
}

func (svc *Service) Delete(ctx context.Context, companyID string, ids ...string) error {
	return svc.repo.DeleteEmployeesByID(ctx, companyID, ids...)
}

// RequestPasswordReset emails a reset link to every active account registered
// with the given email address. The same address may exist in more than one
// company.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	employees, err := svc.repo.FindEmployeesByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if len(employees) == 0 {
		return ErrNotFound
	}
	for _, emp := range employees {
		svc.sendPasswordResetMail(emp)
	}
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetEmployeePassword) error {
	uidErr := core.NewValidationError(nil, core.FieldError{Field: "uid", Error: "invalid value"})

	id, err := decodeUID(rp.UID)
	if err != nil {
		return uidErr
	}
	emp, err := svc.repo.GetEmployeeByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return uidErr
		}
		return err
	}
	if err = verifyToken(emp, rp.Token); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "token", Error: "invalid value"})
	}

	if err = emp.SetPassword(rp.Password); err != nil {
		return err
	}
	emp.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateEmployee(ctx, emp)
	return err
}

func (svc *Service) sendWelcomeMail(emp Employee) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: emp.Name, Address: emp.Email}},
		Subject:      "Welcome aboard!",
		TemplateName: "welcome",
		TemplateData: struct{ Name string }{emp.Name},
	})
}

func (svc *Service) sendPasswordResetMail(emp Employee) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: emp.Name, Address: emp.Email}},
		Subject:      "Password reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name string
			URL  string
		}{
			Name: emp.Name,
			URL:  fmt.Sprintf("%s/password-reset/%s/%s", svc.conf.FrontendBaseURL, EncodeUID(emp), MakeToken(emp)),
		},
	})
}
