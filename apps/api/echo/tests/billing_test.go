package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/safisha/backend/core/billing"
	"github.com/safisha/backend/core/staff"
	testutil "github.com/safisha/backend/tests"
)

func TestServer_CreateInvoice(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cleaner := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace", "grace@example.com")

	body := []byte(fmt.Sprintf(`{
		"customer_id": %q,
		"items": [
			{"description": "Standard clean", "quantity": "2", "unit_price": "2500"},
			{"description": "Oven clean", "quantity": "1", "unit_price": "1500"}
		],
		"tax_rate": "0.16",
		"discount": "500"
	}`, cust.ID))

	tests := []httpTest{
		{
			name:     "Create invoice: cleaner forbidden",
			body:     body,
			token:    getToken(t, e.conf, cleaner),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "Create invoice: unknown customer",
			body:     []byte(`{"customer_id": "nope", "items": [{"description": "Clean"}]}`),
			token:    getToken(t, e.conf, owner),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"customer_id": "unknown customer"}),
		},
		{
			name:     "Create invoice",
			body:     body,
			token:    getToken(t, e.conf, owner),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/invoices", tt.token, tt.body)
			e.app.ServeHTTP(rec, req)

			checkCodeAndData(t, tt, rec)
			if rec.Code != http.StatusCreated {
				return
			}

			var inv billing.Invoice
			decode(t, rec, &inv)
			if inv.Status != billing.StatusDraft {
				t.Errorf("status = %q; want %q", inv.Status, billing.StatusDraft)
			}
			if inv.Number != 1 {
				t.Errorf("number = %d; want 1", inv.Number)
			}
			// 2*2500 + 1500 = 6500; tax 16% = 1040; minus 500 discount
			if !inv.Subtotal.Equal(decimal.NewFromInt(6500)) {
				t.Errorf("subtotal = %s; want 6500", inv.Subtotal)
			}
			if !inv.TaxAmount.Equal(decimal.NewFromInt(1040)) {
				t.Errorf("taxAmount = %s; want 1040", inv.TaxAmount)
			}
			if !inv.Total.Equal(decimal.NewFromInt(7040)) {
				t.Errorf("total = %s; want 7040", inv.Total)
			}
		})
	}

	t.Run("Invoice numbers are per company", func(t *testing.T) {
		inv := testutil.CreateInvoice(t, e.billingRepo, comp.ID, cust.ID, decimal.NewFromInt(1000), billing.StatusDraft)
		if inv.Number != 2 {
			t.Errorf("number = %d; want 2", inv.Number)
		}

		rivalComp, _ := testutil.CreateCompany(t, e.companyRepo, "Upesi Clean", "info@upesi.co.ke", "boss@upesi.co.ke")
		rivalCust := testutil.CreateCustomer(t, e.customerRepo, rivalComp.ID, "Other", "other@example.com")
		rivalInv := testutil.CreateInvoice(t, e.billingRepo, rivalComp.ID, rivalCust.ID, decimal.NewFromInt(1000), billing.StatusDraft)
		if rivalInv.Number != 1 {
			t.Errorf("rival number = %d; want 1", rivalInv.Number)
		}
	})
}

func TestServer_InvoiceLifecycle(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace", "grace@example.com")
	inv := testutil.CreateInvoice(t, e.billingRepo, comp.ID, cust.ID, decimal.NewFromInt(5000), billing.StatusDraft)
	token := getToken(t, e.conf, owner)

	t.Run("Record payment on a draft", func(t *testing.T) {
		body := []byte(`{"amount": "5000", "method": "cash"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/invoices/"+inv.ID+"/payments", token, body)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "payments can only be recorded on sent invoices"}),
		}, rec)
	})

	t.Run("Send invoice", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/invoices/"+inv.ID+"/send", token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got billing.Invoice
		decode(t, rec, &got)
		if got.Status != billing.StatusSent || !got.SentAt.Valid || !got.DueDate.Valid {
			t.Errorf("invoice = %q sentAt = %+v dueDate = %+v", got.Status, got.SentAt, got.DueDate)
		}
	})

	t.Run("Overpayment", func(t *testing.T) {
		body := []byte(`{"amount": "6000", "method": "cash"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/invoices/"+inv.ID+"/payments", token, body)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"amount": "payment exceeds the invoice balance"}),
		}, rec)
	})

	var paymentID string

	t.Run("Partial payment", func(t *testing.T) {
		body := []byte(`{"amount": "2000", "method": "transfer", "reference": "MPESA-XYZ"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/invoices/"+inv.ID+"/payments", token, body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var p billing.Payment
		decode(t, rec, &p)
		paymentID = p.ID

		req, rec = newAuthRequest(http.MethodGet, "/v1/invoices/"+inv.ID, token)
		e.app.ServeHTTP(rec, req)
		var got billing.Invoice
		decode(t, rec, &got)
		if got.Status != billing.StatusSent {
			t.Errorf("status = %q; want %q", got.Status, billing.StatusSent)
		}
		if !got.Balance().Equal(decimal.NewFromInt(3000)) {
			t.Errorf("balance = %s; want 3000", got.Balance())
		}
	})

	t.Run("Final payment flips to paid", func(t *testing.T) {
		body := []byte(`{"amount": "3000", "method": "cash"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/invoices/"+inv.ID+"/payments", token, body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/invoices/"+inv.ID, token)
		e.app.ServeHTTP(rec, req)
		var got billing.Invoice
		decode(t, rec, &got)
		if got.Status != billing.StatusPaid || !got.PaidAt.Valid {
			t.Errorf("invoice = %q paidAt = %+v", got.Status, got.PaidAt)
		}
	})

	t.Run("Delete payment reverts a paid invoice", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/payments/"+paymentID, token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/invoices/"+inv.ID, token)
		e.app.ServeHTTP(rec, req)
		var got billing.Invoice
		decode(t, rec, &got)
		if got.Status != billing.StatusSent || got.PaidAt.Valid {
			t.Errorf("invoice = %q paidAt = %+v", got.Status, got.PaidAt)
		}
		if len(got.Payments) != 1 {
			t.Errorf("payments = %d; want 1", len(got.Payments))
		}
	})

	t.Run("Void", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/invoices/"+inv.ID+"/void", token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got billing.Invoice
		decode(t, rec, &got)
		if got.Status != billing.StatusVoid {
			t.Errorf("status = %q; want %q", got.Status, billing.StatusVoid)
		}
	})

	t.Run("Void invoices cannot be edited", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/invoices/"+inv.ID, token, []byte(`{"notes": "late"}`))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "paid or void invoices cannot be edited"}),
		}, rec)
	})

	t.Run("Only drafts can be deleted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/invoices/"+inv.ID, token)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "only draft invoices can be deleted"}),
		}, rec)
	})
}

func TestServer_QueryPayments(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace", "grace@example.com")
	inv := testutil.CreateInvoice(t, e.billingRepo, comp.ID, cust.ID, decimal.NewFromInt(5000), billing.StatusSent)
	token := getToken(t, e.conf, owner)

	body := []byte(`{"amount": "1000", "method": "cash"}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/invoices/"+inv.ID+"/payments", token, body)
	e.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("recording payment: code = %v; body %s", rec.Code, rec.Body.String())
	}

	t.Run("Query payments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/payments?method=cash", token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got []billing.Payment
		decode(t, rec, &got)
		if len(got) != 1 || got[0].InvoiceID != inv.ID {
			t.Errorf("payments = %+v", got)
		}
	})

	t.Run("Invoice payment listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/invoices/"+inv.ID+"/payments", token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got []billing.Payment
		decode(t, rec, &got)
		if len(got) != 1 {
			t.Errorf("len = %d; want 1", len(got))
		}
	})
}
