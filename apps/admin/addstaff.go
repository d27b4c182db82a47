package main

import (
	"context"
	"time"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/staff"
)

// addStaff updates or creates a staff.Employee under the given company.
func (cli *commandLine) addStaff(companyEmail, name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	comp, err := cli.companyRepo.GetCompanyByEmail(ctx, core.CleanString(companyEmail, true /* lower */))
	if err != nil {
		return err
	}

	var emp staff.Employee
	var found bool
	employees, err := cli.staffRepo.FindEmployeesByEmail(ctx, email)
	if err != nil {
		return err
	}
	for _, e := range employees {
		if e.CompanyID == comp.ID {
			emp = e
			found = true
			break
		}
	}

	now := time.Now().UTC()
	if !found {
		emp = staff.Employee{
			CompanyID: comp.ID,
			Email:     email,
			CreatedAt: now,
		}
	}
	if name != "" {
		emp.Name = core.CleanString(name)
	}
	if isAdmin {
		emp.Roles = []string{staff.RoleAdminManager}
	} else if len(emp.Roles) == 0 {
		emp.Roles = []string{staff.RoleCleaner}
	}
	emp.IsActive = true
	emp.UpdatedAt = now
	if err := emp.SetPassword(pwd); err != nil {
		return err
	}

	if found {
		_, err = cli.staffRepo.UpdateEmployee(ctx, emp)
	} else {
		_, err = cli.staffRepo.CreateEmployee(ctx, emp)
	}
	return err
}
