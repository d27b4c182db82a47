package main

import (
	"context"

	"github.com/safisha/backend/core/company"
)

func (cli *commandLine) addCompany(name, email, ownerName, ownerEmail, pwd string) error {
	ctx := context.Background()

	nc := company.NewCompany{
		Name:            name,
		Email:           email,
		OwnerName:       ownerName,
		OwnerEmail:      ownerEmail,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := nc.Validate(ctx, cli.validate, cli.companySvc); err != nil {
		return err
	}

	comp, owner, err := cli.companySvc.Register(ctx, nc)
	if err != nil {
		return err
	}
	logger.Printf("company %q registered; owner account: %s", comp.Name, owner.Email)
	return nil
}
