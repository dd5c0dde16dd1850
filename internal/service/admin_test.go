package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbook/config"
	"docbook/internal/domain"
)

func TestAdminService_EnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cfg := config.AdminConfig{Email: "Root@Example.com", Password: "admin-pass", Phone: "+10000000000"}

	require.NoError(t, f.services.Admin.EnsureAdmin(ctx, cfg))
	require.NoError(t, f.services.Admin.EnsureAdmin(ctx, cfg))
	assert.Len(t, f.users.users, 1)

	admin, err := f.users.GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleAdmin, admin.Role)
	assert.True(t, admin.IsVerified)

	tokens, err := f.services.Auth.Login(ctx, domain.LoginRequest{Login: "root@example.com", Password: "admin-pass"}, testClient)
	require.NoError(t, err)
	_, role, err := f.services.Auth.ParseToken(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleAdmin, role)

	require.NoError(t, f.services.Admin.EnsureAdmin(ctx, config.AdminConfig{}))
}

func TestAdminService_ApproveDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doctorID := register(t, f, domain.UserRoleDoctor, "6001@example.com")
	require.NoError(t, f.users.MarkVerified(ctx, doctorID))

	err := f.services.Admin.SetUserStatus(ctx, 100, doctorID, domain.UpdateUserStatusDTO{Status: domain.UserStatusActive}, testClient)
	require.NoError(t, err)

	_, err = f.services.Auth.Login(ctx, domain.LoginRequest{Login: "6001@example.com", Password: "secret-pass"}, testClient)
	assert.NoError(t, err)
}

func TestAdminService_BlockRevokesSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	patientID := register(t, f, domain.UserRolePatient, "7001@example.com")
	require.NoError(t, f.users.MarkVerified(ctx, patientID))

	tokens, err := f.services.Auth.Login(ctx, domain.LoginRequest{Login: "7001@example.com", Password: "secret-pass"}, testClient)
	require.NoError(t, err)
	require.Len(t, f.sessions.sessions, 1)
	_, _, err = f.services.Auth.ParseToken(ctx, tokens.AccessToken)
	require.NoError(t, err)

	err = f.services.Admin.SetUserStatus(ctx, 100, patientID, domain.UpdateUserStatusDTO{Status: domain.UserStatusBlocked, Reason: "spam"}, testClient)
	require.NoError(t, err)

	assert.Empty(t, f.sessions.sessions)
	_, err = f.services.Auth.RefreshTokens(ctx, tokens.RefreshToken, testClient)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	// the access token issued before the block is refused right away
	_, _, err = f.services.Auth.ParseToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrAccountBlocked)

	entry := f.authLogs.last()
	assert.Equal(t, domain.AuthEventStatusChange, entry.Event)
	assert.Contains(t, entry.Details, "active -> blocked")
	assert.Contains(t, entry.Details, "spam")
}

func TestAdminService_SetUserStatusRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	patientID := f.addPatient(t)

	err := f.services.Admin.SetUserStatus(ctx, patientID, patientID, domain.UpdateUserStatusDTO{Status: domain.UserStatusBlocked}, testClient)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = f.services.Admin.SetUserStatus(ctx, 100, patientID, domain.UpdateUserStatusDTO{Status: "deleted"}, testClient)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = f.services.Admin.SetUserStatus(ctx, 100, 404, domain.UpdateUserStatusDTO{Status: domain.UserStatusBlocked}, testClient)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdminService_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, doctorID := f.addDoctor(t, 1)
	patientID := f.addPatient(t)

	_, err := f.services.Appointment.Book(ctx, patientID, domain.CreateAppointmentDTO{DoctorID: doctorID, Date: nextMonday, SlotNumber: 1})
	require.NoError(t, err)

	stats, err := f.services.Admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UsersByRole[domain.UserRoleDoctor])
	assert.Equal(t, 1, stats.UsersByRole[domain.UserRolePatient])
	assert.Equal(t, 2, stats.UsersByStatus[domain.UserStatusActive])
	assert.Equal(t, 1, stats.AppointmentsByStatus[domain.AppointmentStatusPending])
}

func TestUserService_UpdateAndPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := register(t, f, domain.UserRolePatient, "8001@example.com")
	register(t, f, domain.UserRolePatient, "8002@example.com")

	name := "grace"
	require.NoError(t, f.services.User.Update(ctx, id, domain.UpdateUserDTO{FirstName: &name}))
	user, err := f.services.User.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Grace", user.FirstName)

	taken := "+1 555 000 8002"
	err = f.services.User.Update(ctx, id, domain.UpdateUserDTO{Phone: &taken})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	err = f.services.User.UpdatePassword(ctx, id, domain.PasswordUpdateDTO{OldPassword: "wrong", NewPassword: "new-secret"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, f.services.User.UpdatePassword(ctx, id, domain.PasswordUpdateDTO{OldPassword: "secret-pass", NewPassword: "new-secret"}))
}
