package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	echoapi "github.com/safisha/backend/apps/api/echo"
	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/billing"
	"github.com/safisha/backend/core/company"
	"github.com/safisha/backend/core/customer"
	"github.com/safisha/backend/core/feedback"
	"github.com/safisha/backend/core/inventory"
	"github.com/safisha/backend/core/job"
	"github.com/safisha/backend/core/plan"
	"github.com/safisha/backend/core/portal"
	"github.com/safisha/backend/core/shiftswap"
	"github.com/safisha/backend/core/staff"
	"github.com/safisha/backend/core/stats"
	"github.com/safisha/backend/core/timeoff"
	emailsvc "github.com/safisha/backend/services/email"
	logsvc "github.com/safisha/backend/services/logger"
	"github.com/safisha/backend/storage/database"
	gormrepos "github.com/safisha/backend/storage/database/gorm"
	sqlxrepos "github.com/safisha/backend/storage/database/sqlx"
	redisstore "github.com/safisha/backend/storage/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("getting DB handle: %v", err), err)
	}
	defer func() {
		if err = sqlDB.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up repositories
	companyRepo := gormrepos.NewCompanyRepository(db)
	employeeRepo := gormrepos.NewEmployeeRepository(db)
	customerRepo := gormrepos.NewCustomerRepository(db)
	planRepo := gormrepos.NewPlanRepository(db)
	jobRepo := gormrepos.NewJobRepository(db)
	billingRepo := gormrepos.NewBillingRepository(db)
	inventoryRepo := gormrepos.NewInventoryRepository(db)
	timeoffRepo := gormrepos.NewTimeoffRepository(db)
	shiftswapRepo := gormrepos.NewShiftswapRepository(db)
	feedbackRepo := gormrepos.NewFeedbackRepository(db)
	statsRepo := sqlxrepos.NewStatsRepository(sqlxrepos.NewDB(sqlDB, conf.Database.Engine))

	// set up the portal login-code store
	rdb := redisstore.NewClient(conf)
	defer func() { _ = rdb.Close() }()
	codeStore := redisstore.NewCodeStore(rdb)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	companySvc := company.NewService(companyRepo, mailSvc, conf, logger)
	staffSvc := staff.NewService(employeeRepo, mailSvc, conf, logger)
	customerSvc := customer.NewService(customerRepo, logger)
	planSvc := plan.NewService(planRepo, logger)
	feedbackSvc := feedback.NewService(feedbackRepo, customerRepo, companyRepo, jobRepo, mailSvc, conf, logger)
	jobSvc := job.NewService(jobRepo, customerRepo, employeeRepo, planRepo, feedbackSvc, mailSvc, conf, logger)
	billingSvc := billing.NewService(billingRepo, customerRepo, companyRepo, jobRepo, mailSvc, conf, logger)
	inventorySvc := inventory.NewService(inventoryRepo, employeeRepo, logger)
	timeoffSvc := timeoff.NewService(timeoffRepo, employeeRepo, mailSvc, conf, logger)
	shiftswapSvc := shiftswap.NewService(shiftswapRepo, jobRepo, employeeRepo, mailSvc, conf, logger)
	portalSvc := portal.NewService(customerRepo, jobRepo, billingRepo, codeStore, mailSvc, conf, logger)
	statsSvc := stats.NewService(statsRepo, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	company.InitValidators(validate, translator)
	staff.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	staff.LoadCommonPasswords(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			CompanySvc:   companySvc,
			StaffSvc:     staffSvc,
			CustomerSvc:  customerSvc,
			PlanSvc:      planSvc,
			JobSvc:       jobSvc,
			BillingSvc:   billingSvc,
			InventorySvc: inventorySvc,
			TimeoffSvc:   timeoffSvc,
			ShiftswapSvc: shiftswapSvc,
			FeedbackSvc:  feedbackSvc,
			PortalSvc:    portalSvc,
			StatsSvc:     statsSvc,
			Validate:     validate,
			Translator:   translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*gorm.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Ping(db); err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
