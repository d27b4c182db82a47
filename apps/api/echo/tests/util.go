package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	. "github.com/safisha/backend/apps/api/echo"
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
	gormrepos "github.com/safisha/backend/storage/database/gorm"
	sqlxrepos "github.com/safisha/backend/storage/database/sqlx"
	testutil "github.com/safisha/backend/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app  Server
	conf *core.Config
	db   *gorm.DB

	companyRepo   company.Repository
	staffRepo     staff.Repository
	customerRepo  customer.Repository
	planRepo      plan.Repository
	jobRepo       job.Repository
	billingRepo   billing.Repository
	inventoryRepo inventory.Repository
	timeoffRepo   timeoff.Repository
	shiftswapRepo shiftswap.Repository
	feedbackRepo  feedback.Repository

	codes *fakeCodeStore
}

func setup(t *testing.T) *env {
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)
	logger := testutil.NewLogger()

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	company.InitValidators(validate, translator)
	staff.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)
	staff.LoadCommonPasswords(conf, logger)

	// set up repositories
	companyRepo := gormrepos.NewCompanyRepository(db)
	staffRepo := gormrepos.NewEmployeeRepository(db)
	customerRepo := gormrepos.NewCustomerRepository(db)
	planRepo := gormrepos.NewPlanRepository(db)
	jobRepo := gormrepos.NewJobRepository(db)
	billingRepo := gormrepos.NewBillingRepository(db)
	inventoryRepo := gormrepos.NewInventoryRepository(db)
	timeoffRepo := gormrepos.NewTimeoffRepository(db)
	shiftswapRepo := gormrepos.NewShiftswapRepository(db)
	feedbackRepo := gormrepos.NewFeedbackRepository(db)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	statsRepo := sqlxrepos.NewStatsRepository(sqlxrepos.NewDB(sqlDB, conf.Database.Engine))

	codes := newFakeCodeStore()

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	companySvc := company.NewService(companyRepo, mailSvc, conf, logger)
	staffSvc := staff.NewService(staffRepo, mailSvc, conf, logger)
	customerSvc := customer.NewService(customerRepo, logger)
	planSvc := plan.NewService(planRepo, logger)
	feedbackSvc := feedback.NewService(feedbackRepo, customerRepo, companyRepo, jobRepo, mailSvc, conf, logger)
	jobSvc := job.NewService(jobRepo, customerRepo, staffRepo, planRepo, feedbackSvc, mailSvc, conf, logger)
	billingSvc := billing.NewService(billingRepo, customerRepo, companyRepo, jobRepo, mailSvc, conf, logger)
	inventorySvc := inventory.NewService(inventoryRepo, staffRepo, logger)
	timeoffSvc := timeoff.NewService(timeoffRepo, staffRepo, mailSvc, conf, logger)
	shiftswapSvc := shiftswap.NewService(shiftswapRepo, jobRepo, staffRepo, mailSvc, conf, logger)
	portalSvc := portal.NewService(customerRepo, jobRepo, billingRepo, codes, mailSvc, conf, logger)
	statsSvc := stats.NewService(statsRepo, logger)

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		CompanySvc:     companySvc,
		StaffSvc:       staffSvc,
		CustomerSvc:    customerSvc,
		PlanSvc:        planSvc,
		JobSvc:         jobSvc,
		BillingSvc:     billingSvc,
		InventorySvc:   inventorySvc,
		TimeoffSvc:     timeoffSvc,
		ShiftswapSvc:   shiftswapSvc,
		FeedbackSvc:    feedbackSvc,
		PortalSvc:      portalSvc,
		StatsSvc:       statsSvc,
		Validate:       validate,
		Translator:     translator,
	})

	return &env{
		app:           app,
		conf:          conf,
		db:            db,
		companyRepo:   companyRepo,
		staffRepo:     staffRepo,
		customerRepo:  customerRepo,
		planRepo:      planRepo,
		jobRepo:       jobRepo,
		billingRepo:   billingRepo,
		inventoryRepo: inventoryRepo,
		timeoffRepo:   timeoffRepo,
		shiftswapRepo: shiftswapRepo,
		feedbackRepo:  feedbackRepo,
		codes:         codes,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// fakeCodeStore is an in-memory portal.CodeStore.
type fakeCodeStore struct {
	mu     sync.Mutex
	codes  map[string]string
	counts map[string]int64
}

var _ portal.CodeStore = (*fakeCodeStore)(nil)

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{
		codes:  make(map[string]string),
		counts: make(map[string]int64),
	}
}

func (s *fakeCodeStore) SetCode(ctx context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = code
	return nil
}

func (s *fakeCodeStore) TakeCode(ctx context.Context, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.codes[email]
	delete(s.codes, email)
	return code, nil
}

func (s *fakeCodeStore) CountLoginRequest(ctx context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[email]++
	return s.counts[email], nil
}

func (s *fakeCodeStore) code(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, emp staff.Employee) string {
	token, err := GenerateToken(conf, GetEmployeeClaims(conf, emp))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func getPortalToken(t *testing.T, conf *core.Config, cust customer.Customer) string {
	token, err := GenerateToken(conf, GetCustomerClaims(conf, cust))
	if err != nil {
		t.Fatalf("getPortalToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v (body: %s)", err, rec.Body.String())
	}
}
