package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/safisha/backend/core/feedback"
	"github.com/safisha/backend/core/staff"
	testutil "github.com/safisha/backend/tests"
)

func TestServer_PublicFeedback(t *testing.T) {
	e := setup(t)

	comp, _ := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace Wanjiru", "grace@example.com")
	start := time.Now().UTC().AddDate(0, 0, -1)
	j := testutil.CreateJob(t, e.jobRepo, comp.ID, cust.ID, start)
	testutil.CreateFeedback(t, e.feedbackRepo, comp.ID, j.ID, cust.ID, "t0k3n-grace")

	t.Run("Retrieve: unknown token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/public/feedback/nope")
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("Retrieve", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/public/feedback/t0k3n-grace")
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var pub feedback.PublicFeedback
		decode(t, rec, &pub)
		if pub.Company != comp.Name || pub.JobTitle != j.Title || pub.Submitted {
			t.Errorf("public view = %+v", pub)
		}
	})

	t.Run("Submit: rating out of range", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/public/feedback/t0k3n-grace", []byte(`{"rating": 6}`))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Submit", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/public/feedback/t0k3n-grace", []byte(`{"rating": 4, "comment": "spotless kitchen"}`))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var pub feedback.PublicFeedback
		decode(t, rec, &pub)
		if pub.Rating != 4 || pub.Comment != "spotless kitchen" || !pub.Submitted {
			t.Errorf("public view = %+v", pub)
		}
	})

	t.Run("Submit: token already used", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/public/feedback/t0k3n-grace", []byte(`{"rating": 5}`))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "feedback has already been submitted"}),
		}, rec)
	})
}

func TestServer_QueryFeedback(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	juma := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace Wanjiru", "grace@example.com")
	other := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Peter Otieno", "peter@example.com")

	start := time.Now().UTC().AddDate(0, 0, -2)
	j1 := testutil.CreateJob(t, e.jobRepo, comp.ID, cust.ID, start)
	j2 := testutil.CreateJob(t, e.jobRepo, comp.ID, other.ID, start.AddDate(0, 0, 1))
	testutil.CreateFeedback(t, e.feedbackRepo, comp.ID, j1.ID, cust.ID, "t0k3n-1")
	testutil.CreateFeedback(t, e.feedbackRepo, comp.ID, j2.ID, other.ID, "t0k3n-2")

	t.Run("Query: cleaner forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/feedback", getToken(t, e.conf, juma))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("Query", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/feedback", getToken(t, e.conf, owner))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got []feedback.Feedback
		decode(t, rec, &got)
		if len(got) != 2 {
			t.Errorf("len = %d; want 2", len(got))
		}
	})

	t.Run("Query: by customer", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/feedback?customer_id="+cust.ID, getToken(t, e.conf, owner))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got []feedback.Feedback
		decode(t, rec, &got)
		if len(got) != 1 || got[0].JobID != j1.ID {
			t.Errorf("got = %+v", got)
		}
	})
}
