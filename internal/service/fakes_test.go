package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"docbook/config"
	"docbook/internal/cache"
	"docbook/internal/domain"
	"docbook/internal/repository"
	"docbook/internal/slots"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]*domain.User
	next  int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[int64]*domain.User{}}
}

func (f *fakeUsers) add(u domain.User) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	u.ID = f.next
	f.users[u.ID] = &u
	return u.ID
}

func (f *fakeUsers) Create(_ context.Context, dto domain.CreateUserDTO) (int64, error) {
	for _, u := range f.users {
		if u.Email == dto.Email || u.Phone == dto.Phone {
			return 0, domain.ErrAlreadyExists
		}
	}
	return f.add(domain.User{
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		Email:        dto.Email,
		Phone:        dto.Phone,
		PasswordHash: dto.PasswordHash,
		Role:         dto.Role,
		Status:       dto.Status,
	}), nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.Email == email })
}

func (f *fakeUsers) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	return f.find(func(u *domain.User) bool { return u.Phone == phone })
}

func (f *fakeUsers) Update(_ context.Context, id int64, dto domain.UpdateUserDTO) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if dto.FirstName != nil {
		u.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		u.LastName = *dto.LastName
	}
	if dto.Phone != nil {
		u.Phone = *dto.Phone
	}
	return nil
}

func (f *fakeUsers) mutate(id int64, fn func(*domain.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(u)
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	return f.mutate(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (f *fakeUsers) UpdateStatus(_ context.Context, id int64, status domain.UserStatus) error {
	return f.mutate(id, func(u *domain.User) { u.Status = status })
}

func (f *fakeUsers) MarkVerified(_ context.Context, id int64) error {
	return f.mutate(id, func(u *domain.User) { u.IsVerified = true })
}

func (f *fakeUsers) List(context.Context, domain.UserFilter) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) CountByFilter(context.Context, domain.UserFilter) (int, error) {
	return len(f.users), nil
}

func (f *fakeUsers) CountByRole(context.Context) (map[domain.UserRole]int, error) {
	counts := map[domain.UserRole]int{}
	for _, u := range f.users {
		counts[u.Role]++
	}
	return counts, nil
}

func (f *fakeUsers) CountByStatus(context.Context) (map[domain.UserStatus]int, error) {
	counts := map[domain.UserStatus]int{}
	for _, u := range f.users {
		counts[u.Status]++
	}
	return counts, nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]domain.Session{}}
}

func (f *fakeSessions) Open(_ context.Context, s domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, old := range f.sessions {
		if old.UserID == s.UserID && !old.ExpiresAt.After(s.CreatedAt) {
			delete(f.sessions, id)
		}
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessions) FindByRefreshToken(_ context.Context, token string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.RefreshToken == token {
			c := s
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSessions) Rotate(_ context.Context, oldID string, next domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[oldID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.sessions, oldID)
	f.sessions[next.ID] = next
	return nil
}

func (f *fakeSessions) Revoke(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessions) RevokeAll(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeAuthLogs struct {
	mu   sync.Mutex
	logs []domain.AuthLog
}

func (f *fakeAuthLogs) Create(_ context.Context, log domain.AuthLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAuthLogs) List(context.Context, domain.AuthLogFilter) ([]domain.AuthLog, error) {
	return f.logs, nil
}

func (f *fakeAuthLogs) CountByFilter(context.Context, domain.AuthLogFilter) (int, error) {
	return len(f.logs), nil
}

func (f *fakeAuthLogs) last() domain.AuthLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs[len(f.logs)-1]
}

type fakeDoctors struct {
	mu      sync.Mutex
	users   *fakeUsers
	doctors map[int64]*domain.Doctor
	next    int64
}

func newFakeDoctors(users *fakeUsers) *fakeDoctors {
	return &fakeDoctors{users: users, doctors: map[int64]*domain.Doctor{}}
}

func (f *fakeDoctors) Create(_ context.Context, userID int64, dto domain.CreateDoctorDTO) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.doctors {
		if d.UserID == userID {
			return 0, domain.ErrAlreadyExists
		}
	}
	f.next++
	f.doctors[f.next] = &domain.Doctor{
		ID:              f.next,
		UserID:          userID,
		Specialization:  dto.Specialization,
		Bio:             dto.Bio,
		ExperienceYears: dto.ExperienceYears,
		ConsultationFee: dto.ConsultationFee,
		Schedule:        slots.Schedule{},
	}
	return f.next, nil
}

func (f *fakeDoctors) withUser(d *domain.Doctor) (*domain.Doctor, error) {
	c := *d
	u, err := f.users.GetByID(context.Background(), d.UserID)
	if err != nil {
		return nil, err
	}
	c.User = *u
	return &c, nil
}

func (f *fakeDoctors) GetByID(_ context.Context, id int64) (*domain.Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return nil, fmt.Errorf("врач %d: %w", id, domain.ErrNotFound)
	}
	return f.withUser(d)
}

func (f *fakeDoctors) GetByUserID(_ context.Context, userID int64) (*domain.Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.doctors {
		if d.UserID == userID {
			return f.withUser(d)
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDoctors) Update(_ context.Context, id int64, dto domain.UpdateDoctorDTO) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return domain.ErrNotFound
	}
	if dto.Specialization != nil {
		d.Specialization = *dto.Specialization
	}
	if dto.Bio != nil {
		d.Bio = *dto.Bio
	}
	return nil
}

func (f *fakeDoctors) UpdateSchedule(_ context.Context, id int64, schedule slots.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.Schedule = schedule
	return nil
}

func (f *fakeDoctors) UpdatePhoto(_ context.Context, id int64, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.PhotoURL = url
	return nil
}

func (f *fakeDoctors) List(context.Context, domain.DoctorFilter) ([]domain.Doctor, error) {
	return nil, nil
}

func (f *fakeDoctors) CountByFilter(context.Context, domain.DoctorFilter) (int, error) {
	return 0, nil
}

// fakeAppointments enforces one live appointment per doctor, date and slot,
// like the partial unique index.
type fakeAppointments struct {
	mu   sync.Mutex
	rows map[int64]*domain.Appointment
	next int64
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{rows: map[int64]*domain.Appointment{}}
}

func sameDay(a, b time.Time) bool {
	return a.Format(slots.DateLayout) == b.Format(slots.DateLayout)
}

func (f *fakeAppointments) Create(_ context.Context, a domain.Appointment) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.DoctorID == a.DoctorID && sameDay(r.Date, a.Date) && r.SlotNumber == a.SlotNumber && r.Status.HoldsSlot() {
			return 0, domain.ErrSlotTaken
		}
	}
	f.next++
	a.ID = f.next
	f.rows[a.ID] = &a
	return a.ID, nil
}

func (f *fakeAppointments) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeAppointments) UpdateStatus(_ context.Context, id int64, from, to domain.AppointmentStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status != from {
		return domain.ErrInvalidStatus
	}
	r.Status = to
	if reason != "" {
		r.DeclineReason = reason
	}
	return nil
}

func (f *fakeAppointments) BookedSlots(_ context.Context, doctorID int64, date time.Time) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	booked := []int{}
	for _, r := range f.rows {
		if r.DoctorID == doctorID && sameDay(r.Date, date) && r.Status.HoldsSlot() {
			booked = append(booked, r.SlotNumber)
		}
	}
	sort.Ints(booked)
	return booked, nil
}

func (f *fakeAppointments) List(_ context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Appointment{}
	for _, r := range f.rows {
		if filter.PatientID != nil && r.PatientID != *filter.PatientID {
			continue
		}
		if filter.DoctorID != nil && r.DoctorID != *filter.DoctorID {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeAppointments) CountByFilter(ctx context.Context, filter domain.AppointmentFilter) (int, error) {
	list, _ := f.List(ctx, filter)
	return len(list), nil
}

func (f *fakeAppointments) CountByStatus(context.Context) (map[domain.AppointmentStatus]int, error) {
	counts := map[domain.AppointmentStatus]int{}
	for _, r := range f.rows {
		counts[r.Status]++
	}
	return counts, nil
}

var zapNop = zap.NewNop()

type noopDrafts struct{}

func (noopDrafts) Load(context.Context, int64) (slots.Week, error) { return nil, cache.ErrMiss }

func (noopDrafts) Save(context.Context, int64, slots.Week) error { return nil }

func (noopDrafts) Delete(context.Context, int64) error { return nil }

type noopAvailability struct{}

func (noopAvailability) Get(context.Context, int64, string) (*slots.AvailabilityResult, error) {
	return nil, cache.ErrMiss
}

func (noopAvailability) Set(context.Context, int64, slots.AvailabilityResult) error { return nil }

func (noopAvailability) Invalidate(context.Context, int64, string) error { return nil }

func (noopAvailability) InvalidateDoctor(context.Context, int64) error { return nil }

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.AppointmentEvent
}

func (n *recordingNotifier) NotifyAppointment(e domain.AppointmentEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

type capturingSender struct {
	codes map[string]string
}

func (s *capturingSender) SendCode(_ context.Context, email, code string) error {
	s.codes[email] = code
	return nil
}

// fixture wires every service over fakes and miniredis-backed stores.
type fixture struct {
	users        *fakeUsers
	sessions     *fakeSessions
	authLogs     *fakeAuthLogs
	doctors      *fakeDoctors
	appointments *fakeAppointments
	notifier     *recordingNotifier
	sender       *capturingSender
	redis        *miniredis.Miniredis
	cfg          *config.Config
	services     *Services
}

// fixtureNow is Saturday 2026-10-17 10:00 UTC.
var fixtureNow = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		JWT:     config.JWTConfig{SigningKey: "test-key", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour},
		OTP:     config.OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 3, ResendCooldown: time.Minute},
		Booking: config.BookingConfig{HorizonDays: 7, Location: time.UTC},
	}

	users := newFakeUsers()
	f := &fixture{
		users:        users,
		sessions:     newFakeSessions(),
		authLogs:     &fakeAuthLogs{},
		doctors:      newFakeDoctors(users),
		appointments: newFakeAppointments(),
		notifier:     &recordingNotifier{},
		sender:       &capturingSender{codes: map[string]string{}},
		redis:        mr,
		cfg:          cfg,
	}

	f.services = NewServices(Deps{
		Repos: &repository.Repositories{
			User:        f.users,
			Session:     f.sessions,
			AuthLog:     f.authLogs,
			Doctor:      f.doctors,
			Appointment: f.appointments,
		},
		Logger:       zap.NewNop(),
		Config:       cfg,
		Drafts:       cache.NewDraftStore(client, time.Hour),
		OTP:          cache.NewOTPStore(client, cfg.OTP.TTL, cfg.OTP.ResendCooldown),
		CodeSender:   f.sender,
		Availability: cache.NewAvailabilityCache(client, time.Minute),
		Notifier:     f.notifier,
		Now:          func() time.Time { return fixtureNow },
	})

	return f
}

// addDoctor creates an active doctor whose Monday hours are the given slots.
func (f *fixture) addDoctor(t *testing.T, mondaySlots ...int) (userID, doctorID int64) {
	t.Helper()
	userID = f.users.add(domain.User{
		FirstName: "Bob", LastName: "Stone", Email: fmt.Sprintf("doc%d@example.com", len(f.users.users)),
		Role: domain.UserRoleDoctor, Status: domain.UserStatusActive, IsVerified: true,
	})
	doctorID, err := f.doctors.Create(context.Background(), userID, domain.CreateDoctorDTO{Specialization: "Cardiology"})
	if err != nil {
		t.Fatalf("create doctor: %v", err)
	}

	week := slots.InitializeWeek(nil)
	for _, n := range mondaySlots {
		week = week.Toggle(slots.Monday, n)
	}
	if err := f.doctors.UpdateSchedule(context.Background(), doctorID, week.Persist()); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	return userID, doctorID
}

func (f *fixture) addPatient(t *testing.T) int64 {
	t.Helper()
	return f.users.add(domain.User{
		FirstName: "Ann", LastName: "Lee", Email: fmt.Sprintf("p%d@example.com", len(f.users.users)),
		Role: domain.UserRolePatient, Status: domain.UserStatusActive, IsVerified: true,
	})
}
