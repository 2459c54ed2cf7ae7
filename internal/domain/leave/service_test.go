package leave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leavehr/internal/domain/auth"
	"leavehr/internal/domain/core"
)

type sentNotification struct {
	UserID string
	Kind   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Create(ctx context.Context, userID, kind, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind})
	return nil
}

func (n *recordingNotifier) recipients(kind string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		if s.Kind == kind {
			out = append(out, s.UserID)
		}
	}
	return out
}

type recordingAuditor struct {
	mu      sync.Mutex
	actions []string
}

func (a *recordingAuditor) Record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	return nil
}

type fixture struct {
	svc      *Service
	store    *MemoryStore
	notifier *recordingNotifier
	auditor  *recordingAuditor
	emp      map[string]string
	pto      LeaveType
	sick     LeaveType
}

var (
	hrUser      = auth.UserContext{UserID: "u-hr", RoleName: auth.RoleHR}
	managerUser = auth.UserContext{UserID: "u-mgr", RoleName: auth.RoleManager}
	staffUser   = auth.UserContext{UserID: "u-emp", RoleName: auth.RoleEmployee}
	otherUser   = auth.UserContext{UserID: "u-oth", RoleName: auth.RoleEmployee}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, details ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s got %s %v", want, got, details)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	directory := core.NewMemoryStore()
	store := NewMemoryStore()
	emp := map[string]string{}
	people := []struct {
		key, userID, role, manager string
	}{
		{"hr", "u-hr", auth.RoleHR, ""},
		{"mgr", "u-mgr", auth.RoleManager, ""},
		{"emp", "u-emp", auth.RoleEmployee, "mgr"},
		{"oth", "u-oth", auth.RoleEmployee, ""},
	}
	for _, p := range people {
		id, err := directory.CreateEmployee(ctx, core.Employee{UserID: p.userID, FirstName: p.key, Role: p.role, ManagerID: emp[p.manager], Active: true})
		require.NoError(t, err)
		emp[p.key] = id
		store.PutEmployee(EmployeeRef{ID: id, ManagerID: emp[p.manager], Active: true})
	}

	five := dec("5")
	twenty := dec("20")
	ten := 10
	pto := LeaveType{Name: "PTO", AccrualRate: dec("1.25"), RequiresApproval: true, MaxDays: &twenty, MaxConsecutiveDays: &ten, Active: true,
		CarryOver: CarryOverPolicy{MaxDays: &five, ExpiryMonth: 1, ExpiryDay: 31}}
	sick := LeaveType{Name: "Sick", AccrualRate: dec("1"), RequiresApproval: true, Active: true}
	var err error
	pto.ID, err = store.CreateType(ctx, pto)
	require.NoError(t, err)
	sick.ID, err = store.CreateType(ctx, sick)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	auditor := &recordingAuditor{}
	svc := NewService(store, core.NewService(directory), notifier, auditor)
	svc.Now = func() time.Time { return time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, store: store, notifier: notifier, auditor: auditor, emp: emp, pto: pto, sick: sick}
}

func (f *fixture) request(t *testing.T, user auth.UserContext, typeID string, start, end time.Time) LeaveRequest {
	t.Helper()
	req, err := f.svc.CreateRequest(context.Background(), user, CreateInput{LeaveTypeID: typeID, StartDate: start, EndDate: end})
	require.NoError(t, err)
	return req
}

func (f *fixture) balance(t *testing.T, employeeID, typeID string, year int) Balance {
	t.Helper()
	balances, err := f.store.ListBalances(context.Background(), employeeID, year)
	require.NoError(t, err)
	for _, b := range balances {
		if b.LeaveTypeID == typeID {
			return b
		}
	}
	t.Fatalf("no balance for %s/%s/%d", employeeID, typeID, year)
	return Balance{}
}

func TestCreateThenCancelRestoresBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request(t, staffUser, f.pto.ID, date(2025, 3, 10), date(2025, 3, 12))
	assert.Equal(t, StatusPending, req.Status)
	assertDecimal(t, "3", req.Days)

	b := f.balance(t, f.emp["emp"], f.pto.ID, 2025)
	assertDecimal(t, "15", b.Allocated, "initial allocation is rate x 12")
	assertDecimal(t, "3", b.Pending)
	assertDecimal(t, "12", b.Available())

	cancelled, err := f.svc.CancelRequest(ctx, staffUser, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	b = f.balance(t, f.emp["emp"], f.pto.ID, 2025)
	assertDecimal(t, "0", b.Pending)
	assertDecimal(t, "15", b.Available())
	assert.ElementsMatch(t, []string{"u-hr", "u-mgr"}, f.notifier.recipients("leave_cancelled"))
	assert.Contains(t, f.auditor.actions, AuditLeaveCancelled)
}

func TestCreateNotifiesApprovers(t *testing.T) {
	f := newFixture(t)
	f.request(t, staffUser, f.pto.ID, date(2025, 3, 10), date(2025, 3, 10))
	assert.ElementsMatch(t, []string{"u-hr", "u-mgr"}, f.notifier.recipients("leave_submitted"))
	assert.Contains(t, f.auditor.actions, AuditLeaveRequested)
}

func TestCreateRefusesInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRequest(ctx, staffUser, CreateInput{LeaveTypeID: f.sick.ID, StartDate: date(2025, 3, 10), EndDate: date(2025, 3, 28)})
	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assertDecimal(t, "12", insufficient.Available)
	assertDecimal(t, "15", insufficient.Requested)

	requests, err := f.store.ListRequests(ctx, RequestFilter{EmployeeID: f.emp["emp"]})
	require.NoError(t, err)
	assert.Empty(t, requests, "refused request must not be stored")
	balances, err := f.store.ListBalances(ctx, f.emp["emp"], 2025)
	require.NoError(t, err)
	assert.Empty(t, balances, "refused request must not leave a balance row behind")
}

func TestCreateReportsOverlapAtBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.request(t, staffUser, f.pto.ID, date(2025, 3, 10), date(2025, 3, 12))

	_, err := f.svc.CreateRequest(ctx, staffUser, CreateInput{LeaveTypeID: f.pto.ID, StartDate: date(2025, 3, 12), EndDate: date(2025, 3, 14)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(CodeOverlap))

	f.request(t, staffUser, f.pto.ID, date(2025, 3, 13), date(2025, 3, 14))
	assertDecimal(t, "5", f.balance(t, f.emp["emp"], f.pto.ID, 2025).Pending)
}

func TestCreateReportsAllViolations(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRequest(context.Background(), staffUser, CreateInput{LeaveTypeID: f.pto.ID, StartDate: date(2025, 3, 1), EndDate: date(2025, 2, 27)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(CodePastDate))
	assert.True(t, verr.Has(CodeInvalidRange))
}

func TestValidateLeaveRequestDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	days, err := f.svc.ValidateLeaveRequest(ctx, f.emp["emp"], f.pto.ID, date(2025, 3, 10), date(2025, 3, 25))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(CodeMaxConsecutiveExceeded))
	assertDecimal(t, "12", days)

	balances, err := f.store.ListBalances(ctx, f.emp["emp"], 0)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestPendingIsConservedInAnyResolutionOrder(t *testing.T) {
	orders := [][]string{
		{StatusApproved, StatusRejected, StatusCancelled},
		{StatusCancelled, StatusApproved, StatusRejected},
		{StatusRejected, StatusCancelled, StatusApproved},
	}
	for _, order := range orders {
		f := newFixture(t)
		ctx := context.Background()
		reqs := []LeaveRequest{
			f.request(t, staffUser, f.pto.ID, date(2025, 3, 10), date(2025, 3, 11)),
			f.request(t, staffUser, f.pto.ID, date(2025, 3, 17), date(2025, 3, 19)),
			f.request(t, staffUser, f.pto.ID, date(2025, 3, 24), date(2025, 3, 24)),
		}
		assertDecimal(t, "6", f.balance(t, f.emp["emp"], f.pto.ID, 2025).Pending)

		used := decimal.Zero
		for i, outcome := range order {
			var err error
			switch outcome {
			case StatusApproved:
				_, err = f.svc.ApproveRequest(ctx, managerUser, reqs[i].ID, "")
				used = used.Add(reqs[i].Days)
			case StatusRejected:
				_, err = f.svc.RejectRequest(ctx, hrUser, reqs[i].ID, "coverage")
			case StatusCancelled:
				_, err = f.svc.CancelRequest(ctx, staffUser, reqs[i].ID)
			}
			require.NoError(t, err)
		}

		b := f.balance(t, f.emp["emp"], f.pto.ID, 2025)
		assertDecimal(t, "0", b.Pending, "order %v", order)
		assertDecimal(t, used.String(), b.Used, "order %v", order)
		assertDecimal(t, dec("15").Sub(used).String(), b.Available(), "order %v", order)
	}
}

func TestDecidedRequestIsInvalidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, staffUser, f.pto.ID, date(2025, 3, 10), date(2025, 3, 10))

	approved, err := f.svc.ApproveRequest(ctx, managerUser, req.ID, "enjoy")
	require.NoError(t, err)
	assert.Equal(t, "u-mgr", approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovalDate)
	assert.Equal(t, []string{"u-emp"}, f.notifier.recipients("leave_approved"))

	_, err = f.svc.RejectRequest(ctx, hrUser, req.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.CancelRequest(ctx, staffUser, req.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	b := f.balance(t, f.emp["emp"], f.pto.ID, 2025)
	assertDecimal(t, "1", b.Used)
	assertDecimal(t, "0", b.Pending)
}

func TestDecisionPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, staffUser, f.pto.ID, date(2025, 3, 10), date(2025, 3, 10))
	otherReq := f.request(t, otherUser, f.pto.ID, date(2025, 3, 10), date(2025, 3, 10))
	hrReq := f.request(t, hrUser, f.pto.ID, date(2025, 3, 10), date(2025, 3, 10))

	_, err := f.svc.ApproveRequest(ctx, staffUser, req.ID, "")
	assert.ErrorIs(t, err, ErrForbidden, "employees cannot approve")
	_, err = f.svc.ApproveRequest(ctx, managerUser, otherReq.ID, "")
	assert.ErrorIs(t, err, ErrForbidden, "manager outside their team")
	_, err = f.svc.ApproveRequest(ctx, hrUser, hrReq.ID, "")
	assert.ErrorIs(t, err, ErrForbidden, "self-approval")
	_, err = f.svc.CancelRequest(ctx, otherUser, req.ID)
	assert.ErrorIs(t, err, ErrForbidden, "cancel by non-owner")

	_, err = f.svc.ApproveRequest(ctx, hrUser, otherReq.ID, "")
	assert.NoError(t, err)
	_, err = f.svc.RejectRequest(ctx, managerUser, req.ID, "")
	assert.NoError(t, err)
}

func TestRacingApproveAndRejectResolveOnce(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		ctx := context.Background()
		req := f.request(t, staffUser, f.pto.ID, date(2025, 3, 10), date(2025, 3, 12))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = f.svc.ApproveRequest(ctx, managerUser, req.ID, "")
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = f.svc.RejectRequest(ctx, hrUser, req.ID, "")
		}()
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, ErrInvalidState)
		}
		require.Equal(t, 1, succeeded)

		final, err := f.svc.GetRequest(ctx, req.ID)
		require.NoError(t, err)
		b := f.balance(t, f.emp["emp"], f.pto.ID, 2025)
		assertDecimal(t, "0", b.Pending)
		if final.Status == StatusApproved {
			assertDecimal(t, "3", b.Used)
		} else {
			assertDecimal(t, "0", b.Used)
		}
	}
}

func TestRacingOverlappingCreatesAdmitOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ranges := [][2]time.Time{
		{date(2025, 3, 10), date(2025, 3, 12)},
		{date(2025, 3, 11), date(2025, 3, 13)},
		{date(2025, 3, 12), date(2025, 3, 14)},
	}
	var wg sync.WaitGroup
	errs := make([]error, len(ranges))
	for i, r := range ranges {
		wg.Add(1)
		go func(i int, r [2]time.Time) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateRequest(ctx, staffUser, CreateInput{LeaveTypeID: f.pto.ID, StartDate: r[0], EndDate: r[1]})
		}(i, r)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "unexpected error %v", err)
		assert.True(t, verr.Has(CodeOverlap))
	}
	assert.Equal(t, 1, succeeded)
	assertDecimal(t, "3", f.balance(t, f.emp["emp"], f.pto.ID, 2025).Pending)
}

func TestAutoApprovedTypeConsumesBalanceDirectly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	volunteer, err := f.svc.CreateType(ctx, hrUser, LeaveType{Name: "Volunteer", AccrualRate: dec("0.5"), Active: true})
	require.NoError(t, err)

	req := f.request(t, staffUser, volunteer.ID, date(2025, 3, 10), date(2025, 3, 11))
	assert.Equal(t, StatusApproved, req.Status)
	assert.Equal(t, systemApprover, req.ApprovedBy)

	b := f.balance(t, f.emp["emp"], volunteer.ID, 2025)
	assertDecimal(t, "2", b.Used)
	assertDecimal(t, "0", b.Pending)
	assertDecimal(t, "4", b.Available())
	assert.Equal(t, []string{"u-emp"}, f.notifier.recipients("leave_approved"))
}

func TestCreateRejectsInactiveType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sick.Active = false
	_, err := f.svc.UpdateType(ctx, hrUser, f.sick)
	require.NoError(t, err)

	_, err = f.svc.CreateRequest(ctx, staffUser, CreateInput{LeaveTypeID: f.sick.ID, StartDate: date(2025, 3, 10), EndDate: date(2025, 3, 10)})
	assert.ErrorIs(t, err, ErrInactiveLeaveType)
}

func TestEnsureLeaveBalanceCreatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.svc.EnsureLeaveBalance(ctx, f.emp["emp"], f.pto.ID, 2025)
	require.NoError(t, err)
	assertDecimal(t, "15", b.Allocated)
	assert.Equal(t, reasonInitialAllocation, b.AdjustmentReason)

	again, err := f.svc.EnsureLeaveBalance(ctx, f.emp["emp"], f.pto.ID, 2025)
	require.NoError(t, err)
	assert.Equal(t, b.ID, again.ID)
}

func TestAdjustBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AdjustBalance(ctx, staffUser, f.emp["emp"], f.pto.ID, 2025, dec("2"), "bonus")
	assert.ErrorIs(t, err, ErrForbidden)

	b, err := f.svc.AdjustBalance(ctx, hrUser, f.emp["emp"], f.pto.ID, 2025, dec("2.5"), "overtime credit")
	require.NoError(t, err)
	assertDecimal(t, "17.5", b.Available())
	assert.Equal(t, "overtime credit", b.AdjustmentReason)
	assert.Contains(t, f.auditor.actions, AuditLeaveBalanceAdjusted)

	_, err = f.svc.AdjustBalance(ctx, hrUser, f.emp["emp"], f.pto.ID, 2025, dec("-20"), "correction")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assertDecimal(t, "17.5", f.balance(t, f.emp["emp"], f.pto.ID, 2025).Available())
}

func TestMonthlyAccrualIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	summary, err := f.svc.RunMonthlyAccrual(ctx, 3, 2025)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.EmployeesAccrued)
	assert.Equal(t, 8, summary.BalancesCredited)
	assertDecimal(t, "1.25", f.balance(t, f.emp["emp"], f.pto.ID, 2025).Allocated)

	summary, err = f.svc.RunMonthlyAccrual(ctx, 3, 2025)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.BalancesCredited)
	assert.Equal(t, 8, summary.AlreadyCredited)
	assertDecimal(t, "1.25", f.balance(t, f.emp["emp"], f.pto.ID, 2025).Allocated)

	_, err = f.svc.RunMonthlyAccrual(ctx, 4, 2025)
	require.NoError(t, err)
	assertDecimal(t, "2.5", f.balance(t, f.emp["emp"], f.pto.ID, 2025).Allocated)
	assertDecimal(t, "2", f.balance(t, f.emp["emp"], f.sick.ID, 2025).Allocated)

	_, err = f.svc.RunMonthlyAccrual(ctx, 13, 2025)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestMonthlyAccrualSkipsInactiveEmployees(t *testing.T) {
	f := newFixture(t)
	f.store.PutEmployee(EmployeeRef{ID: f.emp["oth"], Active: false})
	summary, err := f.svc.RunMonthlyAccrual(context.Background(), 1, 2025)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.EmployeesAccrued)
}

func TestYearEndCarryoverAppliesPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.PutBalance(Balance{EmployeeID: f.emp["emp"], LeaveTypeID: f.pto.ID, Year: 2025, Allocated: dec("15"), Used: dec("7")})
	f.store.PutBalance(Balance{EmployeeID: f.emp["oth"], LeaveTypeID: f.pto.ID, Year: 2025, Allocated: dec("15"), Used: dec("12")})
	f.store.PutBalance(Balance{EmployeeID: f.emp["emp"], LeaveTypeID: f.sick.ID, Year: 2025, Allocated: dec("12"), Used: dec("4")})
	f.store.PutBalance(Balance{EmployeeID: f.emp["mgr"], LeaveTypeID: f.sick.ID, Year: 2025, Allocated: dec("12"), Used: dec("12")})

	for run := 0; run < 2; run++ {
		summary, err := f.svc.ProcessYearEndCarryover(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Processed)
		assert.Equal(t, 1, summary.Capped)
		assert.Equal(t, 1, summary.Skipped)

		capped := f.balance(t, f.emp["emp"], f.pto.ID, 2026)
		assertDecimal(t, "5", capped.CarryOver, "8 remaining caps at 5")
		require.NotNil(t, capped.ExpiryDate)
		assert.Equal(t, date(2026, 1, 31), *capped.ExpiryDate)
		assertDecimal(t, "15", capped.Allocated)

		assertDecimal(t, "3", f.balance(t, f.emp["oth"], f.pto.ID, 2026).CarryOver, "3 remaining carries in full")

		sick := f.balance(t, f.emp["emp"], f.sick.ID, 2026)
		assertDecimal(t, "8", sick.CarryOver, "uncapped type carries everything")
		assert.Nil(t, sick.ExpiryDate)
	}
}

func TestStatementRendersPDF(t *testing.T) {
	f := newFixture(t)
	f.request(t, staffUser, f.pto.ID, date(2025, 3, 10), date(2025, 3, 12))
	pdf, err := f.svc.Statement(context.Background(), f.emp["emp"], "Ria Staff", 2025)
	require.NoError(t, err)
	assert.True(t, len(pdf) > 4 && string(pdf[:4]) == "%PDF")
}
