package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

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
)

type (
	// ServerDeps regroups all of the Server's dependencies.
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		CompanySvc   company.ServiceInterface
		StaffSvc     staff.ServiceInterface
		CustomerSvc  customer.ServiceInterface
		PlanSvc      plan.ServiceInterface
		JobSvc       job.ServiceInterface
		BillingSvc   billing.ServiceInterface
		InventorySvc inventory.ServiceInterface
		TimeoffSvc   timeoff.ServiceInterface
		ShiftswapSvc shiftswap.ServiceInterface
		FeedbackSvc  feedback.ServiceInterface
		PortalSvc    portal.ServiceInterface
		StatsSvc     stats.ServiceInterface

		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	staffJWT := echojwt.WithConfig(newStaffJWTConfig(conf))
	portalJWT := echojwt.WithConfig(newPortalJWTConfig(conf))

	registerCompanyAPI(v1, staffJWT, s.deps.CompanySvc, s.deps.Validate)
	registerStaffAPI(v1, staffJWT, conf, s.deps.StaffSvc, s.deps.Validate)
	registerCustomerAPI(v1, staffJWT, s.deps.CustomerSvc, s.deps.Validate)
	registerPlanAPI(v1, staffJWT, s.deps.PlanSvc, s.deps.Validate)
	registerJobAPI(v1, staffJWT, s.deps.JobSvc, s.deps.Validate)
	registerBillingAPI(v1, staffJWT, s.deps.BillingSvc, s.deps.Validate)
	registerInventoryAPI(v1, staffJWT, s.deps.InventorySvc, s.deps.Validate)
	registerTimeoffAPI(v1, staffJWT, s.deps.TimeoffSvc, s.deps.StaffSvc, s.deps.Validate)
	registerShiftswapAPI(v1, staffJWT, s.deps.ShiftswapSvc, s.deps.StaffSvc, s.deps.Validate)
	registerFeedbackAPI(v1, staffJWT, s.deps.FeedbackSvc, s.deps.Validate)
	registerPortalAPI(v1, portalJWT, conf, s.deps.PortalSvc, s.deps.Validate)
	registerStatsAPI(v1, staffJWT, s.deps.StatsSvc)
}

// Start listens on the configured address and reports fatal serve errors on
// Errors(). Run it in a goroutine.
func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errs
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Safisha API!")
}
