package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/safisha/backend/core/staff"
	"github.com/safisha/backend/core/timeoff"
	testutil "github.com/safisha/backend/tests"
)

func TestServer_CreateTimeoffRequest(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	juma := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	_ = owner

	start := time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 3)
	body := []byte(fmt.Sprintf(`{"start_date": %q, "end_date": %q, "reason": "family visit"}`,
		start.Format(time.RFC3339), end.Format(time.RFC3339)))

	t.Run("Create request", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/time-off", getToken(t, e.conf, juma), body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var r timeoff.Request
		decode(t, rec, &r)
		if r.EmployeeID != juma.ID || r.Status != timeoff.StatusPending {
			t.Errorf("request = %+v", r)
		}
	})

	t.Run("Create request: overlap", func(t *testing.T) {
		overlap := []byte(fmt.Sprintf(`{"start_date": %q, "end_date": %q}`,
			start.AddDate(0, 0, 2).Format(time.RFC3339), end.AddDate(0, 0, 2).Format(time.RFC3339)))
		req, rec := newAuthRequest(http.MethodPost, "/v1/time-off", getToken(t, e.conf, juma), overlap)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"start_date": "overlaps an existing time-off request"}),
		}, rec)
	})
}

func TestServer_ReviewTimeoffRequest(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	juma := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)

	start := time.Now().UTC().AddDate(0, 0, 7)
	r := testutil.CreateTimeoffRequest(t, e.timeoffRepo, comp.ID, juma.ID, start, start.AddDate(0, 0, 2), timeoff.StatusPending)
	ownRequest := testutil.CreateTimeoffRequest(t, e.timeoffRepo, comp.ID, owner.ID, start.AddDate(0, 1, 0), start.AddDate(0, 1, 2), timeoff.StatusPending)

	ownerToken := getToken(t, e.conf, owner)
	jumaToken := getToken(t, e.conf, juma)

	t.Run("Review: cleaner forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/time-off/"+r.ID+"/review", jumaToken, []byte(`{"decision": "approve"}`))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("Review: own request", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/time-off/"+ownRequest.ID+"/review", ownerToken, []byte(`{"decision": "approve"}`))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "you cannot review your own request"}),
		}, rec)
	})

	t.Run("Review: bad decision", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/time-off/"+r.ID+"/review", ownerToken, []byte(`{"decision": "maybe"}`))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Review: approve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/time-off/"+r.ID+"/review", ownerToken, []byte(`{"decision": "approve", "note": "enjoy"}`))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got timeoff.Request
		decode(t, rec, &got)
		if got.Status != timeoff.StatusApproved || got.ReviewedByID.String != owner.ID || !got.ReviewedAt.Valid {
			t.Errorf("request = %+v", got)
		}
		if got.ReviewNote != "enjoy" {
			t.Errorf("reviewNote = %q", got.ReviewNote)
		}
	})

	t.Run("Review: already reviewed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/time-off/"+r.ID+"/review", ownerToken, []byte(`{"decision": "deny"}`))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "only pending requests can be reviewed"}),
		}, rec)
	})

	t.Run("Delete: reviewed request", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/time-off/"+r.ID, jumaToken)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "only pending requests can be deleted"}),
		}, rec)
	})

	t.Run("Delete: pending request", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/time-off/"+ownRequest.ID, ownerToken)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

func TestServer_QueryTimeoffRequests(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	juma := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	amina := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Amina", "amina@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)

	start := time.Now().UTC().AddDate(0, 0, 7)
	testutil.CreateTimeoffRequest(t, e.timeoffRepo, comp.ID, juma.ID, start, start.AddDate(0, 0, 2), timeoff.StatusPending)
	testutil.CreateTimeoffRequest(t, e.timeoffRepo, comp.ID, amina.ID, start, start.AddDate(0, 0, 1), timeoff.StatusApproved)

	t.Run("Query: admin sees all", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/time-off", getToken(t, e.conf, owner))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got []timeoff.Request
		decode(t, rec, &got)
		if len(got) != 2 {
			t.Errorf("len = %d; want 2", len(got))
		}
	})

	t.Run("Query: cleaner sees own only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/time-off", getToken(t, e.conf, juma))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got []timeoff.Request
		decode(t, rec, &got)
		if len(got) != 1 || got[0].EmployeeID != juma.ID {
			t.Errorf("got = %+v", got)
		}
	})
}
