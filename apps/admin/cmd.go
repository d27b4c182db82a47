package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/safisha/backend/core/company"
	"github.com/safisha/backend/core/staff"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db          *gorm.DB
	validate    *validator.Validate
	companyRepo company.Repository
	staffRepo   staff.Repository
	companySvc  company.ServiceInterface
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate - apply pending schema migrations")
	fmt.Println("  addcompany -name NAME -email EMAIL -owner-name NAME -owner-email EMAIL - register a company with its owner account")
	fmt.Println("  addstaff -company-email EMAIL -name NAME -email EMAIL [-admin] - add or update a staff account")
	fmt.Println("  resetpassword -email EMAIL [-company-email EMAIL] - reset a staff member's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addCompanyCmd := flag.NewFlagSet("addcompany", flag.ExitOnError)
	addCompanyName := addCompanyCmd.String("name", "", "The company's name.")
	addCompanyEmail := addCompanyCmd.String("email", "", "The company's contact email.")
	addCompanyOwnerName := addCompanyCmd.String("owner-name", "", "The owner's full name.")
	addCompanyOwnerEmail := addCompanyCmd.String("owner-email", "", "The owner's email. The password will be prompted next.")

	addStaffCmd := flag.NewFlagSet("addstaff", flag.ExitOnError)
	addStaffCompanyEmail := addStaffCmd.String("company-email", "", "The employing company's contact email.")
	addStaffName := addStaffCmd.String("name", "", "The staff member's full name.")
	addStaffEmail := addStaffCmd.String("email", "", "The staff member's email. The password will be prompted next.")
	addStaffAdmin := addStaffCmd.Bool("admin", false, "Grant the manager role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The staff member's email. The password will be prompted next.")
	resetPasswordCompanyEmail := resetPasswordCmd.String("company-email", "", "Disambiguates when the email exists in several companies.")

	switch args[1] {
	case "migrate":
		return cli.migrate()

	case "addcompany":
		if err := addCompanyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCompanyName == "" || *addCompanyEmail == "" || *addCompanyOwnerName == "" || *addCompanyOwnerEmail == "" {
			addCompanyCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				addCompanyCmd.Usage()
			}
			return err
		}
		return cli.addCompany(*addCompanyName, *addCompanyEmail, *addCompanyOwnerName, *addCompanyOwnerEmail, pwd)

	case "addstaff":
		if err := addStaffCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStaffCompanyEmail == "" || *addStaffEmail == "" {
			addStaffCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				addStaffCmd.Usage()
			}
			return err
		}
		return cli.addStaff(*addStaffCompanyEmail, *addStaffName, *addStaffEmail, pwd, *addStaffAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				resetPasswordCmd.Usage()
			}
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, *resetPasswordCompanyEmail, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}
