package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safisha/backend/core/billing"
	"github.com/safisha/backend/core/inventory"
	"github.com/safisha/backend/core/staff"
	"github.com/safisha/backend/core/stats"
	testutil "github.com/safisha/backend/tests"
)

func TestServer_Dashboard(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	comp, owner := testutil.CreateCompany(t, e.companyRepo, "Mama Safi", "info@mamasafi.co.ke", "achieng@mamasafi.co.ke")
	juma := testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Juma", "juma@mamasafi.co.ke", "", []string{staff.RoleCleaner}, true)
	testutil.CreateEmployee(t, e.staffRepo, comp.ID, "Former", "former@mamasafi.co.ke", "", []string{staff.RoleCleaner}, false)
	cust := testutil.CreateCustomer(t, e.customerRepo, comp.ID, "Grace Wanjiru", "grace@example.com")

	now := time.Now().UTC()
	testutil.CreateJob(t, e.jobRepo, comp.ID, cust.ID, now, juma.ID)
	future := testutil.CreateJob(t, e.jobRepo, comp.ID, cust.ID, now.AddDate(0, 1, 0))

	testutil.CreateInvoice(t, e.billingRepo, comp.ID, cust.ID, decimal.NewFromInt(4500), billing.StatusSent)
	testutil.CreateInvoice(t, e.billingRepo, comp.ID, cust.ID, decimal.NewFromInt(900), billing.StatusDraft)

	if _, err := e.inventoryRepo.CreateSupply(ctx, inventory.Supply{
		CompanyID:      comp.ID,
		Name:           "Bleach",
		Unit:           "litre",
		QuantityOnHand: 2,
		ReorderLevel:   5,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		t.Fatalf("creating supply: %v", err)
	}

	// a rival company's data never leaks into the dashboard
	rivalComp, _ := testutil.CreateCompany(t, e.companyRepo, "Bright Homes", "hello@brighthomes.co.ke", "njeri@brighthomes.co.ke")
	rivalCust := testutil.CreateCustomer(t, e.customerRepo, rivalComp.ID, "Ali Hassan", "ali@example.com")
	testutil.CreateJob(t, e.jobRepo, rivalComp.ID, rivalCust.ID, now)

	t.Run("Dashboard: cleaner forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", getToken(t, e.conf, juma))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("Dashboard", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", getToken(t, e.conf, owner))
		e.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var dash stats.Dashboard
		decode(t, rec, &dash)

		if dash.JobsToday != 1 {
			t.Errorf("jobsToday = %d; want 1", dash.JobsToday)
		}
		if len(dash.JobsTodayByStatus) != 1 || dash.JobsTodayByStatus[0].Count != 1 {
			t.Errorf("jobsTodayByStatus = %+v", dash.JobsTodayByStatus)
		}
		if dash.OutstandingCount != 1 {
			t.Errorf("outstandingCount = %d; want 1", dash.OutstandingCount)
		}
		if !dash.OutstandingAmount.Equal(decimal.NewFromInt(4500)) {
			t.Errorf("outstandingAmount = %s; want 4500", dash.OutstandingAmount)
		}
		if dash.OverdueCount != 0 {
			t.Errorf("overdueCount = %d; want 0", dash.OverdueCount)
		}
		if dash.AverageRating.Valid {
			t.Errorf("averageRating = %+v; want null", dash.AverageRating)
		}
		if dash.ActiveStaff != 2 {
			t.Errorf("activeStaff = %d; want 2", dash.ActiveStaff)
		}
		if dash.ActiveCustomers != 1 {
			t.Errorf("activeCustomers = %d; want 1", dash.ActiveCustomers)
		}
		if dash.LowStockSupplies != 1 {
			t.Errorf("lowStockSupplies = %d; want 1", dash.LowStockSupplies)
		}
		// the today job has already started by the time the query runs
		if len(dash.UpcomingJobs) != 1 || dash.UpcomingJobs[0].ID != future.ID {
			t.Errorf("upcomingJobs = %+v", dash.UpcomingJobs)
		}
	})
}
