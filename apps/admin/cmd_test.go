package main

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/company"
	"github.com/safisha/backend/core/staff"
	emailsvc "github.com/safisha/backend/services/email"
	gormrepos "github.com/safisha/backend/storage/database/gorm"
	testutil "github.com/safisha/backend/tests"
)

var (
	companyRepo company.Repository
	staffRepo   staff.Repository
)

func setup(t *testing.T) *commandLine {
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	company.InitValidators(validate, translator)
	staff.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, testutil.NewLogger())
	staff.LoadCommonPasswords(conf, testutil.NewLogger())

	companyRepo = gormrepos.NewCompanyRepository(db)
	staffRepo = gormrepos.NewEmployeeRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	return &commandLine{
		db:          db,
		validate:    validate,
		companyRepo: companyRepo,
		staffRepo:   staffRepo,
		companySvc:  company.NewService(companyRepo, mailSvc, conf, testutil.NewLogger()),
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	orig := migrateFunc
	defer func() { migrateFunc = orig }()

	var called bool
	migrateFunc = func(db *gorm.DB) error {
		called = true
		return nil
	}

	if err := cli.run([]string{"admin", "migrate"}); err != nil {
		t.Errorf("cli.run() unexpected error = %v", err)
	}
	if !called {
		t.Error("cli.run() did not run the migration")
	}
}

func Test_commandLine_addCompany(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addcompany"}, wantErr: errHelp},
		{name: "missing owner", args: []string{"addcompany", "-name", "Kazi Safi", "-email", "info@kazisafi.co.ke"}, wantErr: errHelp},
		{name: "empty password", args: []string{"addcompany", "-name", "Kazi Safi", "-email", "info@kazisafi.co.ke", "-owner-name", "Wanjiku Kamau", "-owner-email", "wanjiku@kazisafi.co.ke"}, wantErr: errHelp},
		{name: "ok", args: []string{"addcompany", "-name", "Kazi Safi", "-email", "info@kazisafi.co.ke", "-owner-name", "Wanjiku Kamau", "-owner-email", "wanjiku@kazisafi.co.ke"}, pwd: "V3ryS7r0ng#Pwd"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			err := cli.run(args)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}
		})
	}

	// the company and its owner exist
	ctx := context.Background()
	comp, err := companyRepo.GetCompanyByEmail(ctx, "info@kazisafi.co.ke")
	if err != nil {
		t.Fatalf("GetCompanyByEmail() failed: %v", err)
	}
	emps, err := staffRepo.FindEmployeesByEmail(ctx, "wanjiku@kazisafi.co.ke")
	if err != nil || len(emps) != 1 {
		t.Fatalf("FindEmployeesByEmail() = %v, %v; want 1 owner", emps, err)
	}
	owner := emps[0]
	if owner.CompanyID != comp.ID {
		t.Errorf("owner.CompanyID = %s; want %s", owner.CompanyID, comp.ID)
	}
	if !owner.RoleStartsWith(staff.RoleAdminOwner) {
		t.Errorf("owner.Roles = %v; want %s", owner.Roles, staff.RoleAdminOwner)
	}
	if err := owner.CheckPassword("V3ryS7r0ng#Pwd"); err != nil {
		t.Errorf("owner.CheckPassword() failed: %v", err)
	}

	// duplicate company email is rejected
	mockPassword("V3ryS7r0ng#Pwd")
	err = cli.run([]string{"admin", "addcompany", "-name", "Other", "-email", "info@kazisafi.co.ke", "-owner-name", "X", "-owner-email", "x@kazisafi.co.ke"})
	if err == nil {
		t.Error("cli.run() expected duplicate email error, got nil")
	}
}

func Test_commandLine_addStaff(t *testing.T) {
	cli := setup(t)

	comp, _ := testutil.CreateCompany(t, companyRepo, "Kazi Safi", "info@kazisafi.co.ke", "owner@kazisafi.co.ke")

	tests := []cliTest{
		{name: "no args", args: []string{"addstaff"}, wantErr: errHelp},
		{name: "missing email", args: []string{"addstaff", "-company-email", comp.Email}, wantErr: errHelp},
		{name: "unknown company", args: []string{"addstaff", "-company-email", "nope@x.co", "-name", "Juma Otieno", "-email", "juma@kazisafi.co.ke"}, pwd: "mdr", wantErr: company.ErrNotFound},
		{name: "create cleaner", args: []string{"addstaff", "-company-email", comp.Email, "-name", "Juma Otieno", "-email", "juma@kazisafi.co.ke"}, pwd: "mdr"},
		{name: "promote to admin", args: []string{"addstaff", "-company-email", comp.Email, "-email", "juma@kazisafi.co.ke", "-admin"}, pwd: "lol"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			err := cli.run(args)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}
		})
	}

	emps, err := staffRepo.FindEmployeesByEmail(context.Background(), "juma@kazisafi.co.ke")
	if err != nil || len(emps) != 1 {
		t.Fatalf("FindEmployeesByEmail() = %v, %v; want 1 employee", emps, err)
	}
	emp := emps[0]
	if emp.Name != "Juma Otieno" {
		t.Errorf("emp.Name = %s; want Juma Otieno", emp.Name)
	}
	if !emp.IsAdmin() {
		t.Errorf("emp.Roles = %v; want admin", emp.Roles)
	}
	if err := emp.CheckPassword("lol"); err != nil {
		t.Errorf("emp.CheckPassword() failed: %v", err)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	comp, _ := testutil.CreateCompany(t, companyRepo, "Kazi Safi", "info@kazisafi.co.ke", "owner@kazisafi.co.ke")
	other, _ := testutil.CreateCompany(t, companyRepo, "Usafi Bora", "info@usafibora.co.ke", "owner@usafibora.co.ke")
	testutil.CreateEmployee(t, staffRepo, comp.ID, "Juma Otieno", "juma@kazisafi.co.ke", "mdr", []string{staff.RoleCleaner}, true)
	testutil.CreateEmployee(t, staffRepo, comp.ID, "Asha Mwangi", "shared@x.co", "mdr", []string{staff.RoleCleaner}, true)
	testutil.CreateEmployee(t, staffRepo, other.ID, "Asha M.", "shared@x.co", "mdr", []string{staff.RoleCleaner}, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "juma@kazisafi.co.ke"}, wantErr: errHelp},
		{name: "not found", args: []string{"resetpassword", "-email", "nobody@x.co"}, pwd: "lol", wantErr: staff.ErrNotFound},
		{name: "ambiguous email", args: []string{"resetpassword", "-email", "shared@x.co"}, pwd: "lol", wantErr: errAmbiguousEmail},
		{name: "reset", args: []string{"resetpassword", "-email", "juma@kazisafi.co.ke"}, pwd: "n3wPwd!"},
		{name: "reset with company", args: []string{"resetpassword", "-email", "shared@x.co", "-company-email", other.Email}, pwd: "n3wPwd2!"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			err := cli.run(args)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}
		})
	}

	ctx := context.Background()
	emps, _ := staffRepo.FindEmployeesByEmail(ctx, "juma@kazisafi.co.ke")
	if len(emps) != 1 || emps[0].CheckPassword("n3wPwd!") != nil {
		t.Error("password was not reset")
	}
	emps, _ = staffRepo.FindEmployeesByEmail(ctx, "shared@x.co")
	for _, emp := range emps {
		wantOld := emp.CompanyID == comp.ID
		if wantOld && emp.CheckPassword("mdr") != nil {
			t.Error("wrong employee's password was reset")
		}
		if !wantOld && emp.CheckPassword("n3wPwd2!") != nil {
			t.Error("password was not reset for the targeted company")
		}
	}
}
