package tests

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	. "github.com/safisha/backend/apps/api/echo"
	"github.com/safisha/backend/core/company"
	"github.com/safisha/backend/core/staff"
	testutil "github.com/safisha/backend/tests"
)

func TestServer_RegisterCompany(t *testing.T) {
	e := setup(t)

	path := "/v1/companies/register"
	validBody := []byte(`{
		"name": "Mama Safi Cleaners",
		"email": "info@mamasafi.co.ke",
		"owner_name": "Achieng Odhiambo",
		"owner_email": "achieng@mamasafi.co.ke",
		"password": "V3ryS7r0ng#Pwd",
		"password_confirm": "V3ryS7r0ng#Pwd"
	}`)

	tests := []httpTest{
		{
			name:     "Register: missing fields",
			body:     []byte(`{"name": "Mama Safi Cleaners"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Register: password mismatch",
			body: []byte(`{
				"name": "Mama Safi Cleaners",
				"email": "info@mamasafi.co.ke",
				"owner_name": "Achieng Odhiambo",
				"owner_email": "achieng@mamasafi.co.ke",
				"password": "V3ryS7r0ng#Pwd",
				"password_confirm": "nope"
			}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "Register",
			body:     validBody,
			wantCode: http.StatusCreated,
		},
		{
			name:     "Register: email taken",
			body:     validBody,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": company.ErrEmailExists.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path, tt.body)
			e.app.ServeHTTP(rec, req)

			checkCodeAndData(t, tt, rec)
			if rec.Code != http.StatusCreated {
				return
			}

			var resp RegisterCompanyResponse
			decode(t, rec, &resp)
			if resp.Company.Name != "Mama Safi Cleaners" {
				t.Errorf("company name = %q", resp.Company.Name)
			}
			if resp.Company.Timezone != "Africa/Nairobi" || resp.Company.Currency != "KES" {
				t.Errorf("company defaults = %q %q", resp.Company.Timezone, resp.Company.Currency)
			}
			if !resp.Company.IsActive {
				t.Error("company should be active")
			}
			if !resp.Company.TaxRate.Equal(e.conf.DefaultTaxRate) {
				t.Errorf("company tax rate = %s; want %s", resp.Company.TaxRate, e.conf.DefaultTaxRate)
			}
			if resp.Owner.CompanyID != resp.Company.ID {
				t.Errorf("owner companyID = %q; want %q", resp.Owner.CompanyID, resp.Company.ID)
			}
			if len(resp.Owner.Roles) != 1 || resp.Owner.Roles[0] != staff.RoleAdminOwner {
				t.Errorf("owner roles = %v", resp.Owner.Roles)
			}
		})
	}
}

func TestServer_RetrieveCompany(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	token := getToken(t, e.conf, owner)

	t.Run("Retrieve company: no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/company")
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("Retrieve company", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/company", token)
		e.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got company.Company
		decode(t, rec, &got)
		if got.ID != comp.ID || got.Name != comp.Name {
			t.Errorf("company = %+v; want %+v", got, comp)
		}
	})
}

func TestServer_UpdateCompany(t *testing.T) {
	e := setup(t)

	_, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cleaner := testutil.CreateEmployee(t, e.staffRepo, owner.CompanyID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	ownerToken := getToken(t, e.conf, owner)
	cleanerToken := getToken(t, e.conf, cleaner)

	body := []byte(`{"name": "Mama Safi Ltd", "tax_rate": "0.16", "phone": "+254700000001"}`)

	t.Run("Update company: cleaner forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/company", cleanerToken, body)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("Update company", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/company", ownerToken, body)
		e.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got company.Company
		decode(t, rec, &got)
		if got.Name != "Mama Safi Ltd" {
			t.Errorf("name = %q", got.Name)
		}
		if !got.TaxRate.Equal(decimal.RequireFromString("0.16")) {
			t.Errorf("taxRate = %s; want 0.16", got.TaxRate)
		}
		if got.Phone != "+254700000001" {
			t.Errorf("phone = %q", got.Phone)
		}
	})
}
