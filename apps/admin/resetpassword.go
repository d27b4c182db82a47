package main

import (
	"context"
	"errors"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/staff"
)

var errAmbiguousEmail = errors.New("several employees share this email; provide -company-email")

func (cli *commandLine) resetPassword(email, companyEmail, pwd string) error {
	ctx := context.Background()

	employees, err := cli.staffRepo.FindEmployeesByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}

	var emp staff.Employee
	switch {
	case len(employees) == 0:
		return staff.ErrNotFound
	case len(employees) == 1:
		emp = employees[0]
	default:
		if companyEmail == "" {
			return errAmbiguousEmail
		}
		comp, err := cli.companyRepo.GetCompanyByEmail(ctx, core.CleanString(companyEmail, true /* lower */))
		if err != nil {
			return err
		}
		var found bool
		for _, e := range employees {
			if e.CompanyID == comp.ID {
				emp = e
				found = true
				break
			}
		}
		if !found {
			return staff.ErrNotFound
		}
	}

	if err := emp.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.staffRepo.UpdateEmployee(ctx, emp)
	return err
}
