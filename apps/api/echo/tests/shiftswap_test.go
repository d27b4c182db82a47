package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/safisha/backend/core/job"
	"github.com/safisha/backend/core/shiftswap"
	"github.com/safisha/backend/core/staff"
	testutil "github.com/safisha/backend/tests"
)

func TestServer_CreateShiftSwap(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace Wanjiru", "grace@example.com")
	juma := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	amina := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Amina", "amina@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)

	start := time.Now().UTC().AddDate(0, 0, 3)
	j := testutil.CreateJob(t, e.jobRepo, comp.ID, cust.ID, start, juma.ID)
	done := testutil.CreateJob(t, e.jobRepo, comp.ID, cust.ID, start.AddDate(0, 0, 1), juma.ID)
	done.Status = job.StatusCompleted
	if _, err := e.jobRepo.UpdateJob(context.Background(), done); err != nil {
		t.Fatalf("completing job: %v", err)
	}

	jumaToken := getToken(t, e.conf, juma)

	swapBody := func(jobID, toID string) []byte {
		return []byte(fmt.Sprintf(`{"job_id": %q, "to_employee_id": %q, "note": "dentist"}`, jobID, toID))
	}

	tests := []httpTest{
		{
			name:     "Create swap: not an assignee",
			method:   http.MethodPost,
			path:     "/v1/shift-swaps",
			body:     swapBody(j.ID, juma.ID),
			token:    getToken(t, e.conf, owner),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"job_id": "you are not assigned to this job"}),
		},
		{
			name:     "Create swap: job not scheduled",
			method:   http.MethodPost,
			path:     "/v1/shift-swaps",
			body:     swapBody(done.ID, amina.ID),
			token:    jumaToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"job_id": "shift swaps are only possible for scheduled jobs"}),
		},
		{
			name:     "Create swap: self swap",
			method:   http.MethodPost,
			path:     "/v1/shift-swaps",
			body:     swapBody(j.ID, juma.ID),
			token:    jumaToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"to_employee_id": "you cannot swap with yourself"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			e.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Create swap", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/shift-swaps", jumaToken, swapBody(j.ID, amina.ID))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var s shiftswap.Swap
		decode(t, rec, &s)
		if s.FromEmployeeID != juma.ID || s.ToEmployeeID != amina.ID || s.Status != shiftswap.StatusPending {
			t.Errorf("swap = %+v", s)
		}
	})

	t.Run("Create swap: pending already exists", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/shift-swaps", jumaToken, swapBody(j.ID, amina.ID))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"job_id": "you already have a pending swap for this job"}),
		}, rec)
	})
}

func TestServer_RespondShiftSwap(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace Wanjiru", "grace@example.com")
	juma := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	amina := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Amina", "amina@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	zuri := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Zuri", "zuri@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	_ = owner

	start := time.Now().UTC().AddDate(0, 0, 3)
	j := testutil.CreateJob(t, e.jobRepo, comp.ID, cust.ID, start, juma.ID)

	s := testutil.CreateSwap(t, e.shiftswapRepo, comp.ID, j.ID, juma.ID, amina.ID)
	sibling := testutil.CreateSwap(t, e.shiftswapRepo, comp.ID, j.ID, juma.ID, zuri.ID)

	aminaToken := getToken(t, e.conf, amina)

	t.Run("Respond: non-party", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/shift-swaps/"+s.ID+"/respond", getToken(t, e.conf, zuri), []byte(`{"accept": true}`))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("Respond: accept reassigns the job", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/shift-swaps/"+s.ID+"/respond", aminaToken, []byte(`{"accept": true}`))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got shiftswap.Swap
		decode(t, rec, &got)
		if got.Status != shiftswap.StatusAccepted || !got.RespondedAt.Valid {
			t.Errorf("swap = %+v", got)
		}

		jj, err := e.jobRepo.GetJobByID(ctx, j.ID)
		if err != nil {
			t.Fatalf("reloading job: %v", err)
		}
		if !jj.IsAssignee(amina.ID) || jj.IsAssignee(juma.ID) {
			t.Errorf("assignments = %+v", jj.Assignments)
		}

		// the requester's other pending swap for the job is cancelled
		sib, err := e.shiftswapRepo.GetSwapByID(ctx, sibling.ID)
		if err != nil {
			t.Fatalf("reloading sibling swap: %v", err)
		}
		if sib.Status != shiftswap.StatusCancelled {
			t.Errorf("sibling status = %q", sib.Status)
		}
	})

	t.Run("Respond: no longer pending", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/shift-swaps/"+s.ID+"/respond", aminaToken, []byte(`{"accept": false}`))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "swap is no longer pending"}),
		}, rec)
	})

	t.Run("Respond: decline", func(t *testing.T) {
		s2 := testutil.CreateSwap(t, e.shiftswapRepo, comp.ID, j.ID, amina.ID, zuri.ID)
		req, rec := newAuthRequest(http.MethodPost, "/v1/shift-swaps/"+s2.ID+"/respond", getToken(t, e.conf, zuri), []byte(`{"accept": false, "note": "on leave"}`))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got shiftswap.Swap
		decode(t, rec, &got)
		if got.Status != shiftswap.StatusDeclined || !got.RespondedAt.Valid {
			t.Errorf("swap = %+v", got)
		}
	})
}

func TestServer_CancelShiftSwap(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace Wanjiru", "grace@example.com")
	juma := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	amina := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Amina", "amina@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	_ = owner

	start := time.Now().UTC().AddDate(0, 0, 3)
	j := testutil.CreateJob(t, e.jobRepo, comp.ID, cust.ID, start, juma.ID)
	s := testutil.CreateSwap(t, e.shiftswapRepo, comp.ID, j.ID, juma.ID, amina.ID)

	t.Run("Cancel: target cannot cancel", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/shift-swaps/"+s.ID, getToken(t, e.conf, amina))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("Cancel: requester", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/shift-swaps/"+s.ID, getToken(t, e.conf, juma))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		got, err := e.shiftswapRepo.GetSwapByID(context.Background(), s.ID)
		if err != nil {
			t.Fatalf("reloading swap: %v", err)
		}
		if got.Status != shiftswap.StatusCancelled {
			t.Errorf("status = %q", got.Status)
		}
	})

	t.Run("Cancel: not pending anymore", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/shift-swaps/"+s.ID, getToken(t, e.conf, juma))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "only pending swaps can be cancelled"}),
		}, rec)
	})
}
