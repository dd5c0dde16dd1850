package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"docbook/config"
	"docbook/internal/domain"
	"docbook/internal/metrics"
	"docbook/internal/repository"
	"docbook/internal/slots"
	"docbook/internal/storage"
)

// DraftStore keeps editing weeks between requests. Load returns cache.ErrMiss
// when there is no draft.
type DraftStore interface {
	Load(ctx context.Context, doctorID int64) (slots.Week, error)
	Save(ctx context.Context, doctorID int64, week slots.Week) error
	Delete(ctx context.Context, doctorID int64) error
}

type AvailabilityCache interface {
	Get(ctx context.Context, doctorID int64, date string) (*slots.AvailabilityResult, error)
	Set(ctx context.Context, doctorID int64, result slots.AvailabilityResult) error
	Invalidate(ctx context.Context, doctorID int64, date string) error
	InvalidateDoctor(ctx context.Context, doctorID int64) error
}

// Notifier delivers appointment status events to connected clients.
type Notifier interface {
	NotifyAppointment(event domain.AppointmentEvent)
}

type Deps struct {
	Repos        *repository.Repositories
	Logger       *zap.Logger
	Config       *config.Config
	FileStorage  storage.FileStorage
	Drafts       DraftStore
	OTP          OTPStore
	CodeSender   CodeSender
	Availability AvailabilityCache
	Notifier     Notifier
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

type Services struct {
	User        UserService
	Auth        AuthService
	Doctor      DoctorService
	Appointment AppointmentService
	Admin       AdminService
}

func NewServices(deps Deps) *Services {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.CodeSender == nil {
		deps.CodeSender = NewLogCodeSender(deps.Logger)
	}

	return &Services{
		User:        NewUserService(deps.Repos.User, deps.Logger),
		Auth:        NewAuthService(deps.Repos.Session, deps.Repos.User, deps.Repos.AuthLog, deps.OTP, deps.CodeSender, deps.Config, deps.Metrics, deps.Logger),
		Doctor:      NewDoctorService(deps.Repos.Doctor, deps.Repos.User, deps.Drafts, deps.Availability, deps.FileStorage, deps.Metrics, deps.Logger),
		Appointment: NewAppointmentService(deps.Repos.Appointment, deps.Repos.Doctor, deps.Availability, deps.Notifier, deps.Config.Booking, deps.Metrics, deps.Now, deps.Logger),
		Admin:       NewAdminService(deps.Repos.User, deps.Repos.Session, deps.Repos.AuthLog, deps.Repos.Appointment, deps.Logger),
	}
}

type AuthService interface {
	Register(ctx context.Context, dto domain.RegisterRequest, client domain.ClientInfo) (int64, error)
	VerifyOTP(ctx context.Context, dto domain.VerifyOTPRequest, client domain.ClientInfo) error
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, dto domain.LoginRequest, client domain.ClientInfo) (*domain.Tokens, error)
	RefreshTokens(ctx context.Context, refreshToken string, client domain.ClientInfo) (*domain.Tokens, error)
	Logout(ctx context.Context, refreshToken string, client domain.ClientInfo) error
	ParseToken(ctx context.Context, token string) (int64, domain.UserRole, error)
}

type UserService interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, id int64, dto domain.UpdateUserDTO) error
	UpdatePassword(ctx context.Context, id int64, dto domain.PasswordUpdateDTO) error
}

type DoctorService interface {
	List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, int, error)
	GetByID(ctx context.Context, id int64) (*domain.Doctor, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Doctor, error)
	CreateProfile(ctx context.Context, userID int64, dto domain.CreateDoctorDTO) (int64, error)
	UpdateProfile(ctx context.Context, userID int64, dto domain.UpdateDoctorDTO) error

	GetEditingWeek(ctx context.Context, userID int64) (*domain.ScheduleEditor, error)
	ToggleSlot(ctx context.Context, userID int64, req domain.ToggleSlotRequest) (*domain.ScheduleEditor, error)
	SelectedSlots(ctx context.Context, userID int64, day slots.Weekday) ([]int, error)
	SubmitSchedule(ctx context.Context, userID int64) (slots.Schedule, error)
	DiscardDraft(ctx context.Context, userID int64) error

	UploadPhoto(ctx context.Context, userID int64, photo []byte, filename string) (string, error)
	DeletePhoto(ctx context.Context, userID int64) error
}

type AppointmentService interface {
	AvailableSlots(ctx context.Context, doctorID int64, date string) (*slots.AvailabilityResult, error)
	Book(ctx context.Context, patientID int64, dto domain.CreateAppointmentDTO) (*domain.Appointment, error)
	Approve(ctx context.Context, doctorUserID, id int64) (*domain.Appointment, error)
	Decline(ctx context.Context, doctorUserID, id int64, reason string) (*domain.Appointment, error)
	Cancel(ctx context.Context, patientID, id int64) (*domain.Appointment, error)
	Complete(ctx context.Context, doctorUserID, id int64) (*domain.Appointment, error)
	GetByID(ctx context.Context, userID int64, role domain.UserRole, id int64) (*domain.Appointment, error)
	List(ctx context.Context, userID int64, role domain.UserRole, filter domain.AppointmentFilter) ([]domain.Appointment, int, error)
}

type AdminService interface {
	EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error)
	SetUserStatus(ctx context.Context, adminID, userID int64, dto domain.UpdateUserStatusDTO, client domain.ClientInfo) error
	ListAuthLogs(ctx context.Context, filter domain.AuthLogFilter) ([]domain.AuthLog, int, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

type noopNotifier struct{}

func (noopNotifier) NotifyAppointment(domain.AppointmentEvent) {}
