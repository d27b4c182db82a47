package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/safisha/backend/core/customer"
	"github.com/safisha/backend/core/staff"
	testutil "github.com/safisha/backend/tests"
)

func TestServer_CreateCustomer(t *testing.T) {
	e := setup(t)

	_, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cleaner := testutil.CreateEmployee(t, e.staffRepo, owner.CompanyID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)

	path := "/v1/customers"
	body := []byte(`{
		"name": "Grace Muthoni",
		"email": "grace@example.com",
		"phone": "+254711000001",
		"address_line1": "12 Riverside Dr",
		"city": "Nairobi"
	}`)

	tests := []httpTest{
		{
			name:     "Create customer: no token",
			body:     body,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "Create customer: cleaner forbidden",
			body:     body,
			token:    getToken(t, e.conf, cleaner),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "Create customer: missing fields",
			body:     []byte(`{"name": "Grace Muthoni"}`),
			token:    getToken(t, e.conf, owner),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "Create customer",
			body:     body,
			token:    getToken(t, e.conf, owner),
			wantCode: http.StatusCreated,
		},
		{
			name:     "Create customer: email taken",
			body:     body,
			token:    getToken(t, e.conf, owner),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": customer.ErrEmailExists.Error()}),
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

			var cust customer.Customer
			decode(t, rec, &cust)
			if cust.CompanyID != owner.CompanyID {
				t.Errorf("companyID = %q; want %q", cust.CompanyID, owner.CompanyID)
			}
			if !cust.IsActive {
				t.Error("new customer should be active")
			}
		})
	}
}

func TestServer_CustomerDetail(t *testing.T) {
	e := setup(t)

	_, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	_, rival := testutil.CreateCompany(t, e.companyRepo, "Upesi Clean", "info@upesi.co.ke", "boss@upesi.co.ke")
	cust := testutil.CreateCustomer(t, e.customerRepo, owner.CompanyID, "Grace Muthoni", "grace@example.com")

	ownerToken := getToken(t, e.conf, owner)

	t.Run("Retrieve customer", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/customers/"+cust.ID, ownerToken)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got customer.Customer
		decode(t, rec, &got)
		if got.ID != cust.ID {
			t.Errorf("ID = %q; want %q", got.ID, cust.ID)
		}
	})

	t.Run("Retrieve customer: other company", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/customers/"+cust.ID, getToken(t, e.conf, rival))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("Update customer", func(t *testing.T) {
		body := []byte(`{"phone": "+254722000002", "notes": "prefers morning visits"}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/customers/"+cust.ID, ownerToken, body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got customer.Customer
		decode(t, rec, &got)
		if got.Phone != "+254722000002" {
			t.Errorf("phone = %q", got.Phone)
		}
		if got.Name != cust.Name || got.Email != cust.Email {
			t.Errorf("name/email changed: %q %q", got.Name, got.Email)
		}
	})

	t.Run("Delete customer: existing jobs block it", func(t *testing.T) {
		busy := testutil.CreateCustomer(t, e.customerRepo, owner.CompanyID, "Otieno", "otieno@example.com")
		testutil.CreateJob(t, e.jobRepo, owner.CompanyID, busy.ID, time.Now().Add(24*time.Hour))

		req, rec := newAuthRequest(http.MethodDelete, "/v1/customers/"+busy.ID, ownerToken)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: customer.ErrHasRecords.Error()}),
		}, rec)
	})

	t.Run("Delete customer", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/customers/"+cust.ID, ownerToken)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

func TestServer_QueryCustomers(t *testing.T) {
	e := setup(t)

	_, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	_, rival := testutil.CreateCompany(t, e.companyRepo, "Upesi Clean", "info@upesi.co.ke", "boss@upesi.co.ke")
	testutil.CreateCustomer(t, e.customerRepo, owner.CompanyID, "Grace Muthoni", "grace@example.com")
	testutil.CreateCustomer(t, e.customerRepo, owner.CompanyID, "Otieno Ouma", "otieno@example.com")
	testutil.CreateCustomer(t, e.customerRepo, rival.CompanyID, "Elsewhere", "elsewhere@example.com")

	t.Run("Query customers: tenant scoped", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/customers", getToken(t, e.conf, owner))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got []customer.Customer
		decode(t, rec, &got)
		if len(got) != 2 {
			t.Errorf("len = %d; want 2", len(got))
		}
	})

	t.Run("Query customers: search filter", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/customers?search=grace", getToken(t, e.conf, owner))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got []customer.Customer
		decode(t, rec, &got)
		if len(got) != 1 || got[0].Name != "Grace Muthoni" {
			t.Errorf("got = %+v", got)
		}
	})
}
