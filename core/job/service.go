package job

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/customer"
	"github.com/safisha/backend/core/plan"
	"github.com/safisha/backend/core/staff"
)

var (
	// errors
	ErrNotFound = errors.New("job not found")

	errNotEditable   = "completed or cancelled jobs cannot be edited"
	errUnknownCust   = "unknown or inactive customer"
	errUnknownPlan   = "unknown plan"
	errUnknownStaff  = "unknown or inactive employee"
	errNotCheckable  = "job is not open for check-in"
	errNotAssignee   = "you are not assigned to this job"
	errBadAccuracy   = "GPS fix is not accurate enough"
	errAlreadyIn     = "employee already checked in"
	errNoOpenCheckIn = "no open check-in for this job"
	errNotInProgress = "job is not in progress"
	errNotDeletable  = "only scheduled jobs can be deleted; cancel it instead"
)

type (
	Repository interface {
		// CreateJob persists the job and its assignments in one transaction.
		CreateJob(ctx context.Context, j Job, assignments []Assignment) (Job, error)
		// GetJobByID loads the job with its assignments and check events.
		GetJobByID(ctx context.Context, id string) (Job, error)
		FilterJobs(ctx context.Context, companyID string, filter QueryFilter, orderings []core.DBOrdering) ([]Job, error)
		UpdateJob(ctx context.Context, j Job) (Job, error)
		// UpdateJobWithAssignments saves the job and reconciles assignments in
		// one transaction.
		UpdateJobWithAssignments(ctx context.Context, j Job, addEmployeeIDs, removeEmployeeIDs []string) (Job, error)
		DeleteJobByID(ctx context.Context, companyID, id string) error
		// RecordCheckEvent inserts the event and saves the job mutation that
		// comes with it (status flip, actual timestamps) in one transaction.
		RecordCheckEvent(ctx context.Context, ev CheckEvent, j Job) (CheckEvent, error)
	}

	// FeedbackRequester asks the customer for feedback once a job completes.
	FeedbackRequester interface {
		RequestForJob(ctx context.Context, j Job) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, companyID string, nj NewJob) (Job, error)
		Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Job, error)
		GetByID(ctx context.Context, id string) (Job, error)
		Update(ctx context.Context, id string, uj UpdateJob) (Job, error)
		Cancel(ctx context.Context, id string) (Job, error)
		Delete(ctx context.Context, companyID, id string) error
		CheckInEmployee(ctx context.Context, id, employeeID string, cr CheckRequest) (CheckEvent, error)
		CheckOutEmployee(ctx context.Context, id, employeeID string, cr CheckRequest) (CheckEvent, error)
		UpdateTasks(ctx context.Context, id string, ut UpdateTasks) (Job, error)
	}

	Service struct {
		repo      Repository
		customers customer.Repository
		staff     staff.Repository
		plans     plan.Repository
		feedback  FeedbackRequester
		mailSvc   core.EmailService
		conf      *core.Config
		logger    core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	customers customer.Repository,
	staffRepo staff.Repository,
	plans plan.Repository,
	feedback FeedbackRequester,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		staff:     staffRepo,
		plans:     plans,
		feedback:  feedback,
		mailSvc:   mailSvc,
		conf:      conf,
		logger:    logger,
	}
}

func (svc *Service) Create(ctx context.Context, companyID string, nj NewJob) (Job, error) {
	cust, err := svc.customers.GetCustomerByID(ctx, nj.CustomerID)
	if err != nil || cust.CompanyID != companyID || !cust.IsActive {
		return Job{}, core.NewValidationError(nil, core.FieldError{Field: "customer_id", Error: errUnknownCust})
	}

	now := time.Now().UTC()
	j := Job{
		CompanyID:      companyID,
		CustomerID:     cust.ID,
		Title:          nj.Title,
		Notes:          nj.Notes,
		Address:        nj.Address,
		ScheduledStart: nj.ScheduledStart.UTC(),
		ScheduledEnd:   nj.ScheduledEnd.UTC(),
		Status:         StatusScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if j.Address == "" {
		j.Address = cust.Address()
	}

	if nj.PlanID != "" {
		p, err := svc.plans.GetPlanByID(ctx, nj.PlanID)
		if err != nil || p.CompanyID != companyID {
			return Job{}, core.NewValidationError(nil, core.FieldError{Field: "plan_id", Error: errUnknownPlan})
		}
		j.PlanID = null.StringFrom(p.ID)
		j.Tasks = make([]JobTask, 0, len(p.Tasks))
		for _, t := range p.Tasks {
			j.Tasks = append(j.Tasks, JobTask{Label: t.Label})
		}
		if j.Title == "" {
			j.Title = p.Name
		}
	}
	if j.Title == "" {
		j.Title = "Cleaning visit"
	}

	assignees, err := svc.getAssignees(ctx, companyID, nj.AssigneeIDs)
	if err != nil {
		return Job{}, err
	}
	assignments := make([]Assignment, 0, len(assignees))
	for _, emp := range assignees {
		assignments = append(assignments, Assignment{EmployeeID: emp.ID, CreatedAt: now})
	}

	j, err = svc.repo.CreateJob(ctx, j, assignments)
	if err != nil {
		return Job{}, err
	}

	for _, emp := range assignees {
		svc.sendJobAssignedMail(emp, j, cust.Name)
	}
	return j, nil
}

func (svc *Service) Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Job, error) {
	return svc.repo.FilterJobs(ctx, companyID, *filter, orderings)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Job, error) {
	return svc.repo.GetJobByID(ctx, id)
}

// Update applies a partial edit. When AssigneeIDs is provided the requested
// set is reconciled against the current one: removed assignees are detached,
// new ones attached and emailed; existing ones are left alone.
func (svc *Service) Update(ctx context.Context, id string, uj UpdateJob) (Job, error) {
	j, err := svc.repo.GetJobByID(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if !j.IsOpen() {
		return Job{}, core.NewValidationError(errors.New(errNotEditable))
	}

	if uj.Title != "" {
		j.Title = uj.Title
	}
	if uj.Notes != "" {
		j.Notes = uj.Notes
	}
	if uj.Address != "" {
		j.Address = uj.Address
	}
	if uj.ScheduledStart != nil {
		j.ScheduledStart = uj.ScheduledStart.UTC()
	}
	if uj.ScheduledEnd != nil {
		j.ScheduledEnd = uj.ScheduledEnd.UTC()
	}
	j.UpdatedAt = time.Now().UTC()

	if uj.AssigneeIDs == nil {
		return svc.repo.UpdateJob(ctx, j)
	}

	current := make(map[string]bool, len(j.Assignments))
	for _, a := range j.Assignments {
		current[a.EmployeeID] = true
	}
	requested := make(map[string]bool, len(uj.AssigneeIDs))
	var toAdd []string
	for _, empID := range uj.AssigneeIDs {
		requested[empID] = true
		if !current[empID] {
			toAdd = append(toAdd, empID)
		}
	}
	var toRemove []string
	for empID := range current {
		if !requested[empID] {
			toRemove = append(toRemove, empID)
		}
	}

	added, err := svc.getAssignees(ctx, j.CompanyID, toAdd)
	if err != nil {
		return Job{}, err
	}

	j, err = svc.repo.UpdateJobWithAssignments(ctx, j, toAdd, toRemove)
	if err != nil {
		return Job{}, err
	}

	cust, err := svc.customers.GetCustomerByID(ctx, j.CustomerID)
	if err != nil {
		cust = customer.Customer{}
	}
	for _, emp := range added {
		svc.sendJobAssignedMail(emp, j, cust.Name)
	}
	return j, nil
}

func (svc *Service) Cancel(ctx context.Context, id string) (Job, error) {
	j, err := svc.repo.GetJobByID(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if !j.IsOpen() {
		return Job{}, core.NewValidationError(errors.New(errNotEditable))
	}
	j.Status = StatusCancelled
	j.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateJob(ctx, j)
}

func (svc *Service) Delete(ctx context.Context, companyID, id string) error {
	j, err := svc.repo.GetJobByID(ctx, id)
	if err != nil {
		return err
	}
	if j.Status != StatusScheduled {
		return core.NewValidationError(errors.New(errNotDeletable))
	}
	return svc.repo.DeleteJobByID(ctx, companyID, id)
}

func (svc *Service) CheckInEmployee(ctx context.Context, id, employeeID string, cr CheckRequest) (CheckEvent, error) {
	j, err := svc.repo.GetJobByID(ctx, id)
	if err != nil {
		return CheckEvent{}, err
	}
	if err = svc.checkAccuracy(cr); err != nil {
		return CheckEvent{}, err
	}
	if !j.IsAssignee(employeeID) {
		return CheckEvent{}, core.NewValidationError(errors.New(errNotAssignee))
	}
	if !j.IsOpen() {
		return CheckEvent{}, core.NewValidationError(errors.New(errNotCheckable))
	}
	if j.HasOpenCheckIn(employeeID) {
		return CheckEvent{}, core.NewValidationError(errors.New(errAlreadyIn))
	}

	now := time.Now().UTC()
	ev := newCheckEvent(j.ID, employeeID, CheckIn, cr, now)

	// first check-in starts the job
	if j.Status == StatusScheduled {
		j.Status = StatusInProgress
		j.ActualStart = null.TimeFrom(now)
	}
	j.UpdatedAt = now
	return svc.repo.RecordCheckEvent(ctx, ev, j)
}

func (svc *Service) CheckOutEmployee(ctx context.Context, id, employeeID string, cr CheckRequest) (CheckEvent, error) {
	j, err := svc.repo.GetJobByID(ctx, id)
	if err != nil {
		return CheckEvent{}, err
	}
	if err = svc.checkAccuracy(cr); err != nil {
		return CheckEvent{}, err
	}
	if !j.IsAssignee(employeeID) {
		return CheckEvent{}, core.NewValidationError(errors.New(errNotAssignee))
	}
	if j.Status != StatusInProgress {
		return CheckEvent{}, core.NewValidationError(errors.New(errNotInProgress))
	}
	if !j.HasOpenCheckIn(employeeID) {
		return CheckEvent{}, core.NewValidationError(errors.New(errNoOpenCheckIn))
	}

	now := time.Now().UTC()
	ev := newCheckEvent(j.ID, employeeID, CheckOut, cr, now)

	// last check-out completes the job
	completing := j.openCheckIns() == 1
	if completing {
		j.Status = StatusCompleted
		j.ActualEnd = null.TimeFrom(now)
	}
	j.UpdatedAt = now

	ev, err = svc.repo.RecordCheckEvent(ctx, ev, j)
	if err != nil {
		return CheckEvent{}, err
	}

	if completing && svc.feedback != nil {
		// a failed feedback request must never fail the check-out
		if err := svc.feedback.RequestForJob(ctx, j); err != nil {
			svc.logger.Error(fmt.Sprintf("requesting feedback for job %s: %v", j.ID, err), err)
		}
	}
	return ev, nil
}

func (svc *Service) UpdateTasks(ctx context.Context, id string, ut UpdateTasks) (Job, error) {
	j, err := svc.repo.GetJobByID(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if j.Status != StatusInProgress {
		return Job{}, core.NewValidationError(errors.New(errNotInProgress))
	}
	j.Tasks = ut.Tasks
	j.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateJob(ctx, j)
}

func (svc *Service) getAssignees(ctx context.Context, companyID string, ids []string) ([]staff.Employee, error) {
	assignees := make([]staff.Employee, 0, len(ids))
	for _, empID := range ids {
		emp, err := svc.staff.GetEmployeeByID(ctx, empID)
		if err != nil || emp.CompanyID != companyID || !emp.IsActive {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "assignee_ids", Error: errUnknownStaff})
		}
		assignees = append(assignees, emp)
	}
	return assignees, nil
}

func (svc *Service) checkAccuracy(cr CheckRequest) error {
	if cr.AccuracyM != nil && *cr.AccuracyM > svc.conf.GPSAccuracyMaxM {
		return core.NewValidationError(nil, core.FieldError{Field: "accuracy_m", Error: errBadAccuracy})
	}
	return nil
}

func newCheckEvent(jobID, employeeID, kind string, cr CheckRequest, now time.Time) CheckEvent {
	return CheckEvent{
		JobID:      jobID,
		EmployeeID: employeeID,
		Kind:       kind,
		Lat:        null.Float64FromPtr(cr.Lat),
		Lng:        null.Float64FromPtr(cr.Lng),
		AccuracyM:  null.Float64FromPtr(cr.AccuracyM),
		Note:       cr.Note,
		CreatedAt:  now,
	}
}

func (svc *Service) sendJobAssignedMail(emp staff.Employee, j Job, customerName string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: emp.Name, Address: emp.Email}},
		Subject:      "New job assigned to you",
		TemplateName: "job-assigned",
		TemplateData: struct {
			Name     string
			Title    string
			Customer string
			Address  string
			Start    string
		}{
			Name:     emp.Name,
			Title:    j.Title,
			Customer: customerName,
			Address:  j.Address,
			Start:    j.ScheduledStart.Format(time.RFC1123),
		},
	})
}
