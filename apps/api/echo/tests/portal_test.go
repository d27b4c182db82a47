package tests

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	. "github.com/safisha/backend/apps/api/echo"
	"github.com/safisha/backend/core/billing"
	"github.com/safisha/backend/core/customer"
	"github.com/safisha/backend/core/job"
	"github.com/safisha/backend/core/portal"
	testutil "github.com/safisha/backend/tests"
)

const loginRequestSuccessMsg = "If the email address supplied is associated with an account on this system, " +
	"an email will arrive in your inbox shortly with a login code."

func TestServer_PortalLogin(t *testing.T) {
	e := setup(t)

	comp, _ := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace Wanjiru", "grace@example.com")

	loginRequest := func(email string) *httptest.ResponseRecorder {
		req, rec := newRequest(http.MethodPost, "/v1/portal/login-request", []byte(fmt.Sprintf(`{"email": %q}`, email)))
		e.app.ServeHTTP(rec, req)
		return rec
	}

	t.Run("Login request: unknown email still succeeds", func(t *testing.T) {
		rec := loginRequest("nobody@example.com")
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: loginRequestSuccessMsg}),
		}, rec)
		if e.codes.code("nobody@example.com") != "" {
			t.Error("a code was stored for an unknown email")
		}
	})

	t.Run("Login request", func(t *testing.T) {
		rec := loginRequest(cust.Email)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: loginRequestSuccessMsg}),
		}, rec)
		if code := e.codes.code(cust.Email); len(code) != 6 {
			t.Errorf("stored code = %q; want 6 digits", code)
		}
	})

	t.Run("Login: wrong code consumes the stored one", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"email": %q, "code": "000000"}`, cust.Email))
		req, rec := newRequest(http.MethodPost, "/v1/portal/login", body)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid login"}),
		}, rec)
		if e.codes.code(cust.Email) != "" {
			t.Error("code survived a failed attempt")
		}
	})

	t.Run("Login with code", func(t *testing.T) {
		loginRequest(cust.Email)
		body := []byte(fmt.Sprintf(`{"email": %q, "code": %q}`, cust.Email, e.codes.code(cust.Email)))
		req, rec := newRequest(http.MethodPost, "/v1/portal/login", body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp LoginResponse
		decode(t, rec, &resp)

		// the token opens the portal
		req, rec = newAuthRequest(http.MethodGet, "/v1/portal/me", resp.Token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var me customer.Customer
		decode(t, rec, &me)
		if me.ID != cust.ID {
			t.Errorf("me.ID = %q; want %q", me.ID, cust.ID)
		}
	})

	t.Run("Login with magic link", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"uid": %q, "token": %q}`, portal.EncodeUID(cust), portal.MakeLoginToken(cust)))
		req, rec := newRequest(http.MethodPost, "/v1/portal/login", body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp LoginResponse
		decode(t, rec, &resp)
		if resp.Token == "" {
			t.Error("empty token")
		}
	})

	t.Run("Login request: throttled", func(t *testing.T) {
		var rec *httptest.ResponseRecorder
		for i := 0; i < 5; i++ {
			rec = loginRequest("busy@example.com")
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v before the throttle kicks in", rec.Code)
		}
		rec = loginRequest("busy@example.com")
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusTooManyRequests,
			wantData: marchallObj(t, httpErr{Error: "too many requests"}),
		}, rec)
	})
}

func TestServer_PortalMe(t *testing.T) {
	e := setup(t)

	comp, _ := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace Wanjiru", "grace@example.com")
	token := getPortalToken(t, e.conf, cust)

	t.Run("Me: no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/portal/me")
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("Update profile", func(t *testing.T) {
		body := []byte(`{"phone": "+254700111222", "address_line1": "88 Ngong Rd", "city": "Nairobi"}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/portal/me", token, body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var me customer.Customer
		decode(t, rec, &me)
		if me.Phone != "+254700111222" || me.AddressLine1 != "88 Ngong Rd" {
			t.Errorf("me = %+v", me)
		}
		// name and email stay with the company's staff
		if me.Name != cust.Name || me.Email != cust.Email {
			t.Errorf("me = %+v", me)
		}
	})
}

func TestServer_PortalJobsAndInvoices(t *testing.T) {
	e := setup(t)

	comp, _ := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace Wanjiru", "grace@example.com")
	other := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Peter Otieno", "peter@example.com")

	now := time.Now().UTC()
	upcoming := testutil.CreateJob(t, e.jobRepo, comp.ID, cust.ID, now.AddDate(0, 0, 3))
	past := testutil.CreateJob(t, e.jobRepo, comp.ID, cust.ID, now.AddDate(0, 0, -3))
	otherJob := testutil.CreateJob(t, e.jobRepo, comp.ID, other.ID, now.AddDate(0, 0, 1))

	sent := testutil.CreateInvoice(t, e.billingRepo, comp.ID, cust.ID, decimal.NewFromInt(3500), billing.StatusSent)
	testutil.CreateInvoice(t, e.billingRepo, comp.ID, cust.ID, decimal.NewFromInt(2000), billing.StatusDraft)
	otherInv := testutil.CreateInvoice(t, e.billingRepo, comp.ID, other.ID, decimal.NewFromInt(4200), billing.StatusSent)

	token := getPortalToken(t, e.conf, cust)

	t.Run("Jobs", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/portal/jobs", token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var jobs []job.Job
		decode(t, rec, &jobs)
		if len(jobs) != 2 {
			t.Errorf("len = %d; want 2", len(jobs))
		}
	})

	t.Run("Jobs: upcoming only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/portal/jobs?when=upcoming", token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var jobs []job.Job
		decode(t, rec, &jobs)
		if len(jobs) != 1 || jobs[0].ID != upcoming.ID {
			t.Errorf("jobs = %+v", jobs)
		}
		_ = past
	})

	t.Run("Job detail: another customer's job", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/portal/jobs/"+otherJob.ID, token)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("Invoices: drafts hidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/portal/invoices", token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var invoices []billing.Invoice
		decode(t, rec, &invoices)
		if len(invoices) != 1 || invoices[0].ID != sent.ID {
			t.Errorf("invoices = %+v", invoices)
		}
	})

	t.Run("Invoice detail: another customer's invoice", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/portal/invoices/"+otherInv.ID, token)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("Invoice detail", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/portal/invoices/"+sent.ID, token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var inv billing.Invoice
		decode(t, rec, &inv)
		if !inv.Total.Equal(decimal.NewFromInt(3500)) {
			t.Errorf("total = %s", inv.Total)
		}
	})
}
