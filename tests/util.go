package testutil

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/billing"
	"github.com/safisha/backend/core/company"
	"github.com/safisha/backend/core/customer"
	"github.com/safisha/backend/core/feedback"
	"github.com/safisha/backend/core/job"
	"github.com/safisha/backend/core/plan"
	"github.com/safisha/backend/core/shiftswap"
	"github.com/safisha/backend/core/staff"
	"github.com/safisha/backend/core/timeoff"
	"github.com/safisha/backend/storage/database"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// NewLogger returns a logger that swallows everything.
func NewLogger() core.Logger { return nopLogger{} }

// NewConfig returns a test configuration backed by an in-memory sqlite
// database unique to the test.
func NewConfig(t *testing.T) *core.Config {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return &core.Config{
		Debug:           false,
		TestMode:        true,
		Env:             "TEST",
		Build:           "test",
		AppName:         "Safisha",
		SecretKey:       "s3cr3t-t35t-k3y",
		WorkDir:         core.Getwd(),
		FrontendBaseURL: "http://localhost:3000",
		DefaultFromEmail: mail.Address{
			Name:    "Safisha",
			Address: "noreply@test.local",
		},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		PortalCodeTimeoutDelta:    15 * time.Minute,
		PortalCodeMaxPerHour:      5,
		DefaultTaxRate:            decimal.RequireFromString("0.16"),
		GPSAccuracyMaxM:           100,
		Server: core.ServerConfig{
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			PortalJWTExpirationDelta:  24 * time.Hour,
		},
		Database: core.DatabaseConfig{
			Engine: "sqlite",
			Name:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		},
	}
}

// PrepareDB opens a migrated in-memory database for the test.
func PrepareDB(t *testing.T, conf *core.Config) *gorm.DB {
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// ResetDB empties every table, children first.
func ResetDB(t *testing.T, db *gorm.DB) {
	models := []interface{}{
		&feedback.Feedback{},
		&shiftswap.Swap{},
		&timeoff.Request{},
		&billing.Payment{},
		&billing.Invoice{},
		&job.CheckEvent{},
		&job.Assignment{},
		&job.Job{},
		&plan.Plan{},
		&customer.Customer{},
		&staff.Employee{},
		&company.Company{},
	}
	for _, model := range models {
		if err := db.Where("1 = 1").Delete(model).Error; err != nil {
			t.Fatalf("ResetDB() failed: %v", err)
		}
	}
}

func CreateCompany(
	t *testing.T,
	repo company.Repository,
	name, email, ownerEmail string,
) (company.Company, staff.Employee) {
	now := time.Now().UTC()
	comp := company.Company{
		Name:      name,
		Email:     email,
		Timezone:  "Africa/Nairobi",
		Currency:  "KES",
		TaxRate:   decimal.Zero,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := staff.Employee{
		Name:      "Owner " + name,
		Email:     ownerEmail,
		Roles:     []string{staff.RoleAdminOwner},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := owner.SetPassword("Secr3tP@ss"); err != nil {
		t.Fatalf("CreateCompany() failed: %v", err)
	}
	comp, owner, err := repo.CreateCompany(context.Background(), comp, owner)
	if err != nil {
		t.Fatalf("CreateCompany() failed: %v", err)
	}
	return comp, owner
}

func CreateEmployee(
	t *testing.T,
	repo staff.Repository,
	companyID, name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) staff.Employee {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	emp := staff.Employee{
		CompanyID: companyID,
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := emp.SetPassword(pwd); err != nil {
			t.Fatalf("CreateEmployee() failed: %v", err)
		}
	}
	emp, err := repo.CreateEmployee(context.Background(), emp)
	if err != nil {
		t.Fatalf("CreateEmployee() failed: %v", err)
	}
	return emp
}

func CreateCustomer(
	t *testing.T,
	repo customer.Repository,
	companyID, name, email string,
) customer.Customer {
	now := time.Now().UTC()
	cust := customer.Customer{
		CompanyID:    companyID,
		Name:         name,
		Email:        email,
		AddressLine1: "12 Riverside Dr",
		City:         "Nairobi",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	cust, err := repo.CreateCustomer(context.Background(), cust)
	if err != nil {
		t.Fatalf("CreateCustomer() failed: %v", err)
	}
	return cust
}

func CreatePlan(
	t *testing.T,
	repo plan.Repository,
	companyID, name string,
	tasks []plan.PlanTask,
	basePrice decimal.Decimal,
) plan.Plan {
	now := time.Now().UTC()
	var minutes int
	for _, task := range tasks {
		minutes += task.Minutes
	}
	p := plan.Plan{
		CompanyID:        companyID,
		Name:             name,
		Tasks:            tasks,
		BasePrice:        basePrice,
		EstimatedMinutes: minutes,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	p, err := repo.CreatePlan(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePlan() failed: %v", err)
	}
	return p
}

func CreateJob(
	t *testing.T,
	repo job.Repository,
	companyID, customerID string,
	start time.Time,
	assigneeIDs ...string,
) job.Job {
	now := time.Now().UTC()
	j := job.Job{
		CompanyID:      companyID,
		CustomerID:     customerID,
		Title:          "Standard clean",
		Address:        "12 Riverside Dr, Nairobi",
		ScheduledStart: start.UTC(),
		ScheduledEnd:   start.UTC().Add(2 * time.Hour),
		Status:         job.StatusScheduled,
		Tasks:          []job.JobTask{{Label: "Dust surfaces"}, {Label: "Mop floors"}},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	assignments := make([]job.Assignment, 0, len(assigneeIDs))
	for _, id := range assigneeIDs {
		assignments = append(assignments, job.Assignment{EmployeeID: id, CreatedAt: now})
	}
	j, err := repo.CreateJob(context.Background(), j, assignments)
	if err != nil {
		t.Fatalf("CreateJob() failed: %v", err)
	}
	return j
}

func CreateInvoice(
	t *testing.T,
	repo billing.Repository,
	companyID, customerID string,
	total decimal.Decimal,
	status string,
) billing.Invoice {
	now := time.Now().UTC()
	inv := billing.Invoice{
		CompanyID:  companyID,
		CustomerID: customerID,
		Status:     status,
		IssueDate:  now,
		Items: []billing.InvoiceItem{{
			Description: "Standard clean",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   total,
			Amount:      total,
		}},
		Subtotal:  total,
		TaxRate:   decimal.Zero,
		TaxAmount: decimal.Zero,
		Discount:  decimal.Zero,
		Total:     total,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == billing.StatusSent {
		inv.SentAt.SetValid(now)
		inv.DueDate.SetValid(now.AddDate(0, 0, 14))
	}
	inv, err := repo.CreateInvoice(context.Background(), inv)
	if err != nil {
		t.Fatalf("CreateInvoice() failed: %v", err)
	}
	return inv
}

func CreateFeedback(
	t *testing.T,
	repo feedback.Repository,
	companyID, jobID, customerID, token string,
) feedback.Feedback {
	f := feedback.Feedback{
		CompanyID:  companyID,
		JobID:      jobID,
		CustomerID: customerID,
		Token:      token,
		CreatedAt:  time.Now().UTC(),
	}
	f, err := repo.CreateFeedback(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateFeedback() failed: %v", err)
	}
	return f
}

func CreateTimeoffRequest(
	t *testing.T,
	repo timeoff.Repository,
	companyID, employeeID string,
	start, end time.Time,
	status string,
) timeoff.Request {
	now := time.Now().UTC()
	r := timeoff.Request{
		CompanyID:  companyID,
		EmployeeID: employeeID,
		StartDate:  start.UTC(),
		EndDate:    end.UTC(),
		Reason:     "family visit",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r, err := repo.CreateRequest(context.Background(), r)
	if err != nil {
		t.Fatalf("CreateTimeoffRequest() failed: %v", err)
	}
	return r
}

func CreateSwap(
	t *testing.T,
	repo shiftswap.Repository,
	companyID, jobID, fromEmployeeID, toEmployeeID string,
) shiftswap.Swap {
	now := time.Now().UTC()
	s := shiftswap.Swap{
		CompanyID:      companyID,
		JobID:          jobID,
		FromEmployeeID: fromEmployeeID,
		ToEmployeeID:   toEmployeeID,
		Status:         shiftswap.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s, err := repo.CreateSwap(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateSwap() failed: %v", err)
	}
	return s
}
