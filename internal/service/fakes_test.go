package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/mail"
	"github.com/teqwa/teqwa-core/internal/payment/chapa"
	"github.com/teqwa/teqwa-core/internal/repository"
)

var addis = time.FixedZone("EAT", 3*60*60)

// fixedClock returns 2025-03-10 09:00 in Addis Ababa.
func fixedClock() time.Time {
	return time.Date(2025, 3, 10, 9, 0, 0, 0, addis)
}

func dayOf(t time.Time) string { return t.Format("2006-01-02") }

func adminPrincipal() *auth.Principal {
	return &auth.Principal{User: &domain.User{ID: "admin-user", Role: domain.UserRoleAdmin, Email: "admin@teqwa.org", Active: true}}
}

func staffPrincipal(staff *domain.StaffMember) *auth.Principal {
	return &auth.Principal{
		User:  &domain.User{ID: staff.UserID, Role: domain.UserRoleStaff, Email: staff.Email, Active: true},
		Staff: staff,
	}
}

// --- users ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	user.CreatedAt = fixedClock()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id string, role domain.UserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Role = role
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// --- staff ---

type fakeStaffRepo struct {
	mu      sync.Mutex
	members map[string]*domain.StaffMember
	seq     int
}

func newFakeStaffRepo(members ...*domain.StaffMember) *fakeStaffRepo {
	r := &fakeStaffRepo{members: map[string]*domain.StaffMember{}}
	for _, m := range members {
		r.members[m.ID] = m
	}
	return r
}

func (r *fakeStaffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	staff.ID = fmt.Sprintf("staff-new-%d", r.seq)
	staff.JoinedDate = fixedClock()
	cp := *staff
	r.members[staff.ID] = &cp
	return nil
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

func (r *fakeStaffRepo) GetByUserID(_ context.Context, userID string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeStaffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StaffMember
	for _, m := range r.members {
		if filter.Role != nil && m.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && m.Active != *filter.Active {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeStaffRepo) CountActive(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.members {
		if m.Active {
			n++
		}
	}
	return n, nil
}

// --- attendance ---

type fakeAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]*domain.StaffAttendance
	seq     int
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{records: map[string]*domain.StaffAttendance{}}
}

func attendanceKey(staffID string, day time.Time) string { return staffID + "|" + dayOf(day) }

// put stores a record directly, bypassing service logic.
func (r *fakeAttendanceRepo) put(rec domain.StaffAttendance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("att-%d", r.seq)
	}
	r.records[attendanceKey(rec.StaffID, rec.Date)] = &rec
}

func (r *fakeAttendanceRepo) GetForDate(_ context.Context, staffID string, day time.Time) (*domain.StaffAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[attendanceKey(staffID, day)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeAttendanceRepo) Ensure(_ context.Context, staffID string, day time.Time, status domain.AttendanceStatus) (*domain.StaffAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attendanceKey(staffID, day)
	rec, ok := r.records[key]
	if !ok {
		r.seq++
		rec = &domain.StaffAttendance{
			ID:      fmt.Sprintf("att-%d", r.seq),
			StaffID: staffID,
			Date:    day,
			Status:  status,
		}
		r.records[key] = rec
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeAttendanceRepo) Update(_ context.Context, att *domain.StaffAttendance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attendanceKey(att.StaffID, att.Date)
	if _, ok := r.records[key]; !ok {
		return pgx.ErrNoRows
	}
	cp := *att
	r.records[key] = &cp
	return nil
}

func (r *fakeAttendanceRepo) ListByDate(_ context.Context, day time.Time) ([]domain.StaffAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StaffAttendance
	for _, rec := range r.records {
		if dayOf(rec.Date) == dayOf(day) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StaffID < out[j].StaffID })
	return out, nil
}

func (r *fakeAttendanceRepo) ListWorkLog(_ context.Context, filter repository.WorkLogFilter) ([]domain.StaffAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StaffAttendance
	for _, rec := range r.records {
		if rec.CheckIn == nil {
			continue
		}
		if filter.StaffID != nil && rec.StaffID != *filter.StaffID {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeAttendanceRepo) SumHours(_ context.Context, staffID *string, from, to time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, rec := range r.records {
		if staffID != nil && rec.StaffID != *staffID {
			continue
		}
		d := dayOf(rec.Date)
		if d < dayOf(from) || d > dayOf(to) {
			continue
		}
		total = total.Add(rec.TotalHours)
	}
	return total, nil
}

func (r *fakeAttendanceRepo) CountByStatus(_ context.Context, staffID *string, day time.Time) (map[domain.AttendanceStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[domain.AttendanceStatus]int{}
	for _, rec := range r.records {
		if staffID != nil && rec.StaffID != *staffID {
			continue
		}
		if dayOf(rec.Date) == dayOf(day) {
			out[rec.Status]++
		}
	}
	return out, nil
}

// --- tasks ---

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.StaffTask
	seq   int
	// beforeUpdate runs inside UpdateStatus before the conditional check.
	beforeUpdate func()
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]*domain.StaffTask{}}
}

func (r *fakeTaskRepo) put(task domain.StaffTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = &task
}

func (r *fakeTaskRepo) status(id string) domain.TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[id].Status
}

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.StaffTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	task.ID = fmt.Sprintf("task-new-%d", r.seq)
	task.CreatedAt = fixedClock()
	task.UpdatedAt = task.CreatedAt
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.StaffTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTaskRepo) List(_ context.Context, filter repository.TaskFilter) ([]domain.StaffTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StaffTask
	for _, t := range r.tasks {
		if filter.AssigneeID != nil && t.AssigneeID != *filter.AssigneeID {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(t.Status, filter.Statuses) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTaskRepo) UpdateStatus(_ context.Context, task *domain.StaffTask, from domain.TaskStatus) (bool, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[task.ID]
	if !ok || stored.Status != from {
		return false, nil
	}
	stored.Status = task.Status
	stored.StartedAt = task.StartedAt
	stored.SubmittedAt = task.SubmittedAt
	stored.CompletedAt = task.CompletedAt
	return true, nil
}

func (r *fakeTaskRepo) Counts(_ context.Context, filter repository.TaskCountFilter) (repository.TaskCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c repository.TaskCounts
	open := []domain.TaskStatus{domain.TaskStatusPending, domain.TaskStatusAccepted, domain.TaskStatusInProgress}
	for _, t := range r.tasks {
		if filter.AssigneeID != nil && t.AssigneeID != *filter.AssigneeID {
			continue
		}
		c.Total++
		switch t.Status {
		case domain.TaskStatusCompleted:
			c.Completed++
		case domain.TaskStatusPending:
			c.Pending++
		}
		if dayOf(t.DueDate) < dayOf(filter.Today) && statusIn(t.Status, open) {
			c.Overdue++
		}
	}
	return c, nil
}

// --- payments ---

type fakeTransactionRepo struct {
	mu     sync.Mutex
	txs    map[string]*domain.Transaction
	seq    int64
	writes int
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{txs: map[string]*domain.Transaction{}}
}

func (r *fakeTransactionRepo) put(tx domain.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	tx.ID = r.seq
	r.txs[tx.TxRef] = &tx
}

func (r *fakeTransactionRepo) get(ref string) domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.txs[ref]
}

func (r *fakeTransactionRepo) only() domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		return *tx
	}
	return domain.Transaction{}
}

func (r *fakeTransactionRepo) Create(_ context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.writes++
	tx.ID = r.seq
	tx.CreatedAt = fixedClock()
	tx.UpdatedAt = tx.CreatedAt
	cp := *tx
	r.txs[tx.TxRef] = &cp
	return nil
}

func (r *fakeTransactionRepo) GetByRef(_ context.Context, txRef string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[txRef]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *tx
	return &cp, nil
}

func (r *fakeTransactionRepo) MarkSuccess(_ context.Context, txRef string, gatewayRef, method *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[txRef]
	if !ok || tx.Status == domain.TransactionSuccess {
		return false, nil
	}
	r.writes++
	tx.Status = domain.TransactionSuccess
	if gatewayRef != nil {
		tx.GatewayReference = gatewayRef
	}
	if method != nil {
		tx.PaymentMethod = method
	}
	return true, nil
}

func (r *fakeTransactionRepo) MarkFailed(_ context.Context, txRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[txRef]
	if !ok || tx.Status != domain.TransactionPending {
		return false, nil
	}
	r.writes++
	tx.Status = domain.TransactionFailed
	return true, nil
}

type fakePayableRepo struct {
	mu          sync.Mutex
	donations   map[int64]*domain.Donation
	bookings    map[int64]domain.BookingStatus
	enrollments map[int64]domain.EnrollmentStatus
	paid        map[int64]domain.EnrollmentPaymentStatus
	completions int
}

func newFakePayableRepo() *fakePayableRepo {
	return &fakePayableRepo{
		donations:   map[int64]*domain.Donation{},
		bookings:    map[int64]domain.BookingStatus{},
		enrollments: map[int64]domain.EnrollmentStatus{},
		paid:        map[int64]domain.EnrollmentPaymentStatus{},
	}
}

func (r *fakePayableRepo) Exists(_ context.Context, kind domain.PayableType, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ok bool
	switch kind {
	case domain.PayableDonation:
		_, ok = r.donations[id]
	case domain.PayableFutsalBooking:
		_, ok = r.bookings[id]
	case domain.PayableServiceEnrollment:
		_, ok = r.enrollments[id]
	}
	return ok, nil
}

func (r *fakePayableRepo) GetDonation(_ context.Context, id int64) (*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.donations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (r *fakePayableRepo) CompleteDonation(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.donations[id]
	if !ok {
		return pgx.ErrNoRows
	}
	r.completions++
	d.Status = domain.DonationCompleted
	return nil
}

func (r *fakePayableRepo) ConfirmBooking(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return pgx.ErrNoRows
	}
	r.bookings[id] = domain.BookingConfirmed
	return nil
}

func (r *fakePayableRepo) ConfirmEnrollment(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enrollments[id]; !ok {
		return pgx.ErrNoRows
	}
	r.enrollments[id] = domain.EnrollmentConfirmed
	r.paid[id] = domain.EnrollmentPaymentPaid
	return nil
}

type fakeTransactor struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return fn(ctx)
}

type fakeGateway struct {
	mu           sync.Mutex
	checkoutURL  string
	initErr      error
	verification *chapa.Verification
	verifyErr    error
	initCalls    int
	verifyCalls  int
	lastInit     chapa.InitializeRequest
}

func (g *fakeGateway) Initialize(_ context.Context, req chapa.InitializeRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls++
	g.lastInit = req
	return g.checkoutURL, g.initErr
}

func (g *fakeGateway) Verify(_ context.Context, _ string) (*chapa.Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.verification == nil {
		return &chapa.Verification{}, nil
	}
	cp := *g.verification
	return &cp, nil
}

type recordingSender struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSender) sent() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail.Message(nil), s.messages...)
}
