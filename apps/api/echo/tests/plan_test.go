package tests

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/safisha/backend/core/plan"
	"github.com/safisha/backend/core/staff"
	testutil "github.com/safisha/backend/tests"
)

func TestServer_CreatePlan(t *testing.T) {
	e := setup(t)

	_, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cleaner := testutil.CreateEmployee(t, e.staffRepo, owner.CompanyID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)

	path := "/v1/plans"
	body := []byte(`{
		"name": "Deep Clean",
		"description": "Full house deep clean",
		"tasks": [
			{"label": "Scrub bathrooms", "minutes": 60},
			{"label": "Clean oven", "minutes": 45}
		],
		"base_price": "4500"
	}`)

	tests := []httpTest{
		{
			name:     "Create plan: cleaner forbidden",
			body:     body,
			token:    getToken(t, e.conf, cleaner),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "Create plan: missing name",
			body:     []byte(`{"base_price": "4500"}`),
			token:    getToken(t, e.conf, owner),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "Create plan",
			body:     body,
			token:    getToken(t, e.conf, owner),
			wantCode: http.StatusCreated,
		},
		{
			name:     "Create plan: name taken",
			body:     body,
			token:    getToken(t, e.conf, owner),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": plan.ErrNameExists.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, path, tt.token, tt.body)
			e.app.ServeHTTP(rec, req)

			checkCodeAndData(t, tt, rec)
			if rec.Code != http.StatusCreated {
				return
			}

			var p plan.Plan
			decode(t, rec, &p)
			if p.CompanyID != owner.CompanyID {
				t.Errorf("companyID = %q; want %q", p.CompanyID, owner.CompanyID)
			}
			if p.EstimatedMinutes != 105 {
				t.Errorf("estimatedMinutes = %d; want 105", p.EstimatedMinutes)
			}
			if !p.BasePrice.Equal(decimal.NewFromInt(4500)) {
				t.Errorf("basePrice = %s; want 4500", p.BasePrice)
			}
		})
	}
}

func TestServer_PlanDetail(t *testing.T) {
	e := setup(t)

	_, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	_, rival := testutil.CreateCompany(t, e.companyRepo, "Upesi Clean", "info@upesi.co.ke", "boss@upesi.co.ke")
	cleaner := testutil.CreateEmployee(t, e.staffRepo, owner.CompanyID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	p := testutil.CreatePlan(t, e.planRepo, owner.CompanyID, "Standard Clean",
		[]plan.PlanTask{{Label: "Dust surfaces", Minutes: 30}}, decimal.NewFromInt(2500))

	ownerToken := getToken(t, e.conf, owner)

	t.Run("Retrieve plan: visible to cleaners", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/plans/"+p.ID, getToken(t, e.conf, cleaner))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Retrieve plan: other company", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/plans/"+p.ID, getToken(t, e.conf, rival))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("Update plan", func(t *testing.T) {
		body := []byte(`{"base_price": "2800", "is_active": false}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/plans/"+p.ID, ownerToken, body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got plan.Plan
		decode(t, rec, &got)
		if !got.BasePrice.Equal(decimal.NewFromInt(2800)) {
			t.Errorf("basePrice = %s; want 2800", got.BasePrice)
		}
		if got.IsActive {
			t.Error("plan should be inactive")
		}
	})

	t.Run("Delete plan", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/plans/"+p.ID, ownerToken)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}
