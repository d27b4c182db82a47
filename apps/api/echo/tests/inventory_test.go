package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/safisha/backend/core/inventory"
	"github.com/safisha/backend/core/staff"
	testutil "github.com/safisha/backend/tests"
)

func TestServer_Equipment(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	cleaner := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	token := getToken(t, e.conf, owner)

	var eq inventory.Equipment

	t.Run("Create equipment: cleaner forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/equipment", getToken(t, e.conf, cleaner), []byte(`{"name": "Vacuum"}`))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("Create equipment", func(t *testing.T) {
		body := []byte(`{"name": "Karcher Vacuum", "serial_number": "KV-001"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/equipment", token, body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		decode(t, rec, &eq)
		if eq.Status != inventory.StatusAvailable {
			t.Errorf("status = %q; want %q", eq.Status, inventory.StatusAvailable)
		}
	})

	t.Run("Assign equipment", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"employee_id": %q}`, cleaner.ID))
		req, rec := newAuthRequest(http.MethodPost, "/v1/equipment/"+eq.ID+"/assign", token, body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got inventory.Equipment
		decode(t, rec, &got)
		if got.Status != inventory.StatusAssigned || got.AssignedToID.String != cleaner.ID {
			t.Errorf("equipment = %q assignedTo = %+v", got.Status, got.AssignedToID)
		}
	})

	t.Run("Delete assigned equipment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/equipment/"+eq.ID, token)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "assigned equipment cannot be deleted"}),
		}, rec)
	})

	t.Run("Unassign equipment", func(t *testing.T) {
		body := []byte(`{"employee_id": ""}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/equipment/"+eq.ID+"/assign", token, body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got inventory.Equipment
		decode(t, rec, &got)
		if got.Status != inventory.StatusAvailable || got.AssignedToID.Valid {
			t.Errorf("equipment = %q assignedTo = %+v", got.Status, got.AssignedToID)
		}
	})

	t.Run("Query equipment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/equipment?status=available", token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got []inventory.Equipment
		decode(t, rec, &got)
		if len(got) != 1 {
			t.Errorf("len = %d; want 1", len(got))
		}
	})
}

func TestServer_Supplies(t *testing.T) {
	e := setup(t)

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	token := getToken(t, e.conf, owner)

	var s inventory.Supply

	t.Run("Create supply", func(t *testing.T) {
		body := []byte(`{"name": "Floor detergent", "unit": "litre", "quantity_on_hand": 20, "reorder_level": 5, "unit_cost": "350"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/supplies", token, body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		decode(t, rec, &s)
		if s.CompanyID != comp.ID || s.QuantityOnHand != 20 {
			t.Errorf("supply = %+v", s)
		}
	})

	t.Run("Adjust supply down", func(t *testing.T) {
		body := []byte(`{"delta": -8, "note": "issued for week 34"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/supplies/"+s.ID+"/adjust", token, body)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got inventory.Supply
		decode(t, rec, &got)
		if got.QuantityOnHand != 12 {
			t.Errorf("quantityOnHand = %d; want 12", got.QuantityOnHand)
		}
	})

	t.Run("Adjust below zero", func(t *testing.T) {
		body := []byte(`{"delta": -20}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/supplies/"+s.ID+"/adjust", token, body)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"delta": "stock cannot go negative"}),
		}, rec)
	})

	t.Run("Adjustments are recorded", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/supplies/"+s.ID+"/adjustments", token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got []inventory.StockAdjustment
		decode(t, rec, &got)
		if len(got) != 1 {
			t.Fatalf("len = %d; want 1", len(got))
		}
		if got[0].Delta != -8 || got[0].EmployeeID != owner.ID {
			t.Errorf("adjustment = %+v", got[0])
		}
	})

	t.Run("Low stock filter", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/supplies?low_stock=true", token)
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got []inventory.Supply
		decode(t, rec, &got)
		// 12 on hand with a reorder level of 5 is not low stock
		if len(got) != 0 {
			t.Errorf("len = %d; want 0", len(got))
		}
	})
}
