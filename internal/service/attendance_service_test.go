package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teqwa/teqwa-core/internal/domain"
	apperrors "github.com/teqwa/teqwa-core/pkg/util/errorutil"
)

func newAttendanceFixture(clock func() time.Time) (*AttendanceService, *fakeAttendanceRepo, *domain.StaffMember, *domain.StaffMember) {
	worker := &domain.StaffMember{ID: "staff-1", UserID: "user-1", Name: "Yusuf Ali", Active: true}
	other := &domain.StaffMember{ID: "staff-2", UserID: "user-2", Name: "Amina Said", Active: true}
	repo := newFakeAttendanceRepo()
	svc := NewAttendanceService(AttendanceDependencies{
		AttendanceRepo: repo,
		StaffRepo:      newFakeStaffRepo(worker, other),
		Location:       addis,
		Clock:          clock,
	})
	return svc, repo, worker, other
}

func TestClockInIsIdempotent(t *testing.T) {
	now := fixedClock()
	svc, repo, worker, _ := newAttendanceFixture(func() time.Time { return now })
	ctx := context.Background()

	first, err := svc.ClockIn(ctx, staffPrincipal(worker), "")
	require.NoError(t, err)
	require.NotNil(t, first.CheckIn)
	assert.Equal(t, domain.AttendancePresent, first.Status)

	now = now.Add(30 * time.Minute)
	second, err := svc.ClockIn(ctx, staffPrincipal(worker), "")
	require.NoError(t, err)
	assert.True(t, second.CheckIn.Equal(*first.CheckIn), "check-in time must not move")
	assert.Len(t, repo.records, 1)
}

func TestClockOutComputesHours(t *testing.T) {
	now := fixedClock()
	svc, _, worker, _ := newAttendanceFixture(func() time.Time { return now })
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, staffPrincipal(worker), "")
	require.NoError(t, err)

	now = now.Add(8*time.Hour + 15*time.Minute)
	rec, err := svc.ClockOut(ctx, staffPrincipal(worker), "")
	require.NoError(t, err)
	require.NotNil(t, rec.CheckOut)
	assert.True(t, rec.TotalHours.Equal(decimal.RequireFromString("8.25")), "got %s", rec.TotalHours)
	assert.False(t, rec.IsCheckedIn())
}

func TestClockOutWithoutClockIn(t *testing.T) {
	svc, _, worker, _ := newAttendanceFixture(fixedClock)
	_, err := svc.ClockOut(context.Background(), staffPrincipal(worker), "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "got %v", err)
}

func TestClockInForAnotherStaffMember(t *testing.T) {
	svc, repo, worker, other := newAttendanceFixture(fixedClock)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, staffPrincipal(worker), other.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "got %v", err)
	assert.Empty(t, repo.records)

	rec, err := svc.ClockIn(ctx, adminPrincipal(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, rec.StaffID)

	_, err = svc.ClockIn(ctx, adminPrincipal(), "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "admin without a staff profile must name one")
}

func TestToggleAttendance(t *testing.T) {
	svc, _, worker, _ := newAttendanceFixture(fixedClock)
	ctx := context.Background()

	_, err := svc.ToggleAttendance(ctx, staffPrincipal(worker), worker.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "got %v", err)

	rec, err := svc.ToggleAttendance(ctx, adminPrincipal(), worker.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AttendancePresent, rec.Status)

	rec, err = svc.ToggleAttendance(ctx, adminPrincipal(), worker.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AttendanceAbsent, rec.Status)

	rec, err = svc.ToggleAttendance(ctx, adminPrincipal(), worker.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AttendancePresent, rec.Status)

	_, err = svc.ToggleAttendance(ctx, adminPrincipal(), "ghost")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "got %v", err)
}

func TestWorkLogScoping(t *testing.T) {
	svc, repo, worker, other := newAttendanceFixture(fixedClock)
	in := fixedClock()
	repo.put(domain.StaffAttendance{StaffID: worker.ID, Date: fixedClock(), CheckIn: &in, Status: domain.AttendancePresent})
	repo.put(domain.StaffAttendance{StaffID: other.ID, Date: fixedClock(), CheckIn: &in, Status: domain.AttendancePresent})
	repo.put(domain.StaffAttendance{StaffID: other.ID, Date: fixedClock().AddDate(0, 0, -1), Status: domain.AttendanceAbsent})
	ctx := context.Background()

	all, err := svc.WorkLog(ctx, adminPrincipal(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.WorkLog(ctx, staffPrincipal(worker), &other.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, worker.ID, own[0].StaffID)

	_, err = svc.ListByDate(ctx, staffPrincipal(worker), nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), "got %v", err)

	today, err := svc.ListByDate(ctx, adminPrincipal(), nil)
	require.NoError(t, err)
	assert.Len(t, today, 2)
}

func TestHoursBetween(t *testing.T) {
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "1.5", HoursBetween(start, start.Add(90*time.Minute)).String())
	assert.Equal(t, "0.33", HoursBetween(start, start.Add(20*time.Minute)).String())
}
