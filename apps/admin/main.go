package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/company"
	"github.com/safisha/backend/core/staff"
	emailsvc "github.com/safisha/backend/services/email"
	logsvc "github.com/safisha/backend/services/logger"
	"github.com/safisha/backend/storage/database"
	gormrepos "github.com/safisha/backend/storage/database/gorm"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	rollbar := logsvc.NewRollbarLogger(logger, conf)
	rollbar.Enable(false) // CLI errors go to stdout only

	// set up DB; migrations only run via the migrate command
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	sqlDB, err := db.DB()
	errAndDie(err)
	defer sqlDB.Close()
	errAndDie(database.Ping(db))

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	company.InitValidators(validate, translator)
	staff.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, rollbar)
	staff.LoadCommonPasswords(conf, rollbar)

	companyRepo := gormrepos.NewCompanyRepository(db)
	staffRepo := gormrepos.NewEmployeeRepository(db)
	mailSvc := emailsvc.NewConsoleService(conf)

	// start CLI
	cli := commandLine{
		db:          db,
		validate:    validate,
		companyRepo: companyRepo,
		staffRepo:   staffRepo,
		companySvc:  company.NewService(companyRepo, mailSvc, conf, rollbar),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
