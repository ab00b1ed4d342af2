package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"patient-management/internal/auth"
	"patient-management/internal/converter"
	"patient-management/internal/delivery/dto"
	"patient-management/internal/delivery/http/middleware"
	"patient-management/internal/domain/entity"
	"patient-management/internal/domain/repository"
	"patient-management/internal/schedule"
	"patient-management/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotUnavailable     = errors.New("time slot is already booked")
	ErrInvalidSlot         = errors.New("appointment time is not a slot of the scheduling day")
	ErrInvalidDateFormat   = errors.New("invalid date format, use YYYY-MM-DD")
)

// activeSlotIndex is the partial unique index on (date, time) of non-cancelled rows.
const activeSlotIndex = "uq_appointments_active_slot"

type AppointmentUsecase interface {
	GetAppointments(ctx context.Context, date string) (*dto.AppointmentListResponse, error)
	GetUpcomingAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	GetAppointment(ctx context.Context, id int) (*dto.AppointmentResponse, error)
	GetSlots(ctx context.Context, date string) (*dto.SlotListResponse, error)
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	UpdateAppointmentStatus(ctx context.Context, id int, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error)
	DeleteAppointment(ctx context.Context, id int) error
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	patientRepo     repository.PatientRepository
	auditService    service.AuditService
	slotHoldService *service.SlotHoldService
	directory       *auth.Directory
	now             func() time.Time
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	auditService service.AuditService,
	slotHoldService *service.SlotHoldService,
	directory *auth.Directory,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		patientRepo:     patientRepo,
		auditService:    auditService,
		slotHoldService: slotHoldService,
		directory:       directory,
		now:             time.Now,
	}
}

// GetAppointments lists the appointments of date, or of today when date is empty.
func (u *appointmentUsecase) GetAppointments(ctx context.Context, date string) (*dto.AppointmentListResponse, error) {
	day, err := u.parseDay(date)
	if err != nil {
		return nil, err
	}

	appointments, err := u.appointmentRepo.FindByDate(u.db.WithContext(ctx), day)
	if err != nil {
		u.log.Warnf("Failed to find appointments of %s: %+v", day.Format(entity.DateLayout), err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// GetUpcomingAppointments lists appointments from today on, cancelled ones excluded.
func (u *appointmentUsecase) GetUpcomingAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindFrom(u.db.WithContext(ctx), u.today())
	if err != nil {
		u.log.Warnf("Failed to find upcoming appointments: %+v", err)
		return nil, err
	}

	upcoming := make([]entity.Appointment, 0, len(appointments))
	for _, a := range appointments {
		if !a.IsCancelled() {
			upcoming = append(upcoming, a)
		}
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(upcoming),
		Total:        len(upcoming),
	}, nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, id int) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %d: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	return converter.AppointmentToResponse(appointment), nil
}

// GetSlots regenerates the slot grid of date from its active appointments. Cancelled
// appointments free their slot.
func (u *appointmentUsecase) GetSlots(ctx context.Context, date string) (*dto.SlotListResponse, error) {
	day, err := u.parseDay(date)
	if err != nil {
		return nil, err
	}

	appointments, err := u.appointmentRepo.FindActiveByDate(u.db.WithContext(ctx), day)
	if err != nil {
		u.log.Warnf("Failed to find appointments of %s: %+v", day.Format(entity.DateLayout), err)
		return nil, err
	}

	slots := schedule.Generate(appointments, day)
	available := 0
	for _, slot := range slots {
		if slot.Available {
			available++
		}
	}

	return &dto.SlotListResponse{
		Date:      day.Format(entity.DateLayout),
		Slots:     converter.TimeSlotsToResponses(slots),
		Available: available,
	}, nil
}

// CreateAppointment books a free slot for a patient of the backing store.
//
// Flow:
// 1. Validate date and slot time
// 2. Check the patient exists in the backing store
// 3. Hold the slot in Redis so concurrent bookings of it fail fast
// 4. Re-check the slot against the database and insert in a transaction
// 5. A unique index violation still maps to ErrSlotUnavailable
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	day, err := schedule.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}
	if !schedule.IsSlotTime(req.AppointmentTime) {
		return nil, ErrInvalidSlot
	}

	patient, err := u.patientRepo.Get(ctx, entity.PatientID(req.PatientID))
	if err != nil {
		u.log.Warnf("Failed to get patient %s: %+v", req.PatientID, err)
		return nil, storeError(err)
	}

	release, err := u.slotHoldService.Hold(ctx, day, req.AppointmentTime)
	if err != nil {
		if errors.Is(err, service.ErrSlotHeld) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	defer release()

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	existing, err := u.appointmentRepo.FindActiveByDate(tx, day)
	if err != nil {
		u.log.Warnf("Failed to find appointments of %s: %+v", req.AppointmentDate, err)
		return nil, err
	}
	if !slotFree(schedule.Generate(existing, day), req.AppointmentTime) {
		return nil, ErrSlotUnavailable
	}

	duration := req.Duration
	if duration == 0 {
		duration = entity.DefaultAppointmentDuration
	}

	actor := middleware.ActorFromContext(ctx)
	appointment := &entity.Appointment{
		PatientID:       patient.ID.String(),
		PatientName:     patient.FullName(),
		DoctorName:      u.doctorName(actor),
		AppointmentDate: day,
		AppointmentTime: req.AppointmentTime,
		Duration:        duration,
		Type:            entity.AppointmentType(req.Type),
		Status:          entity.AppointmentStatusScheduled,
		Notes:           req.Notes,
		RoomNumber:      req.RoomNumber,
	}

	if err := u.appointmentRepo.Create(tx, appointment); err != nil {
		if isDuplicateKeyError(err, activeSlotIndex) {
			return nil, ErrSlotUnavailable
		}
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	resp := converter.AppointmentToResponse(appointment)
	if err := u.auditService.LogCreate(ctx, tx, actor, entity.AuditActionAppointmentCreate, "appointment", strconv.Itoa(appointment.ID), resp); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Appointment created: id=%d, date=%s, time=%s", appointment.ID, req.AppointmentDate, req.AppointmentTime)
	return resp, nil
}

func (u *appointmentUsecase) UpdateAppointmentStatus(ctx context.Context, id int, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %d: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	oldValue := converter.AppointmentToResponse(appointment)

	status := entity.AppointmentStatus(req.Status)
	rows, err := u.appointmentRepo.UpdateStatus(tx, id, status)
	if err != nil {
		if isDuplicateKeyError(err, activeSlotIndex) {
			return nil, ErrSlotUnavailable
		}
		u.log.Warnf("Failed to update appointment %d: %+v", id, err)
		return nil, err
	}
	if rows == 0 {
		return nil, ErrAppointmentNotFound
	}
	appointment.Status = status

	newValue := converter.AppointmentToResponse(appointment)
	if err := u.auditService.LogUpdate(ctx, tx, middleware.ActorFromContext(ctx), entity.AuditActionAppointmentStatus, "appointment", strconv.Itoa(id), oldValue, newValue); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return newValue, nil
}

func (u *appointmentUsecase) DeleteAppointment(ctx context.Context, id int) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %d: %+v", id, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}

	if _, err := u.appointmentRepo.Delete(tx, id); err != nil {
		u.log.Warnf("Failed to delete appointment %d: %+v", id, err)
		return err
	}

	if err := u.auditService.LogDelete(ctx, tx, middleware.ActorFromContext(ctx), entity.AuditActionAppointmentDelete, "appointment", strconv.Itoa(id), converter.AppointmentToResponse(appointment)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	return nil
}

func (u *appointmentUsecase) parseDay(date string) (time.Time, error) {
	if date == "" {
		return u.today(), nil
	}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return day, nil
}

func (u *appointmentUsecase) today() time.Time {
	y, m, d := u.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// doctorName is the full name of the booking user, or the username when unknown.
func (u *appointmentUsecase) doctorName(actor entity.Actor) string {
	if user, ok := u.directory.Lookup(actor.Username); ok {
		return user.FullName
	}
	return actor.Username
}

func slotFree(slots []entity.TimeSlot, clock string) bool {
	for _, slot := range slots {
		if slot.Time == clock {
			return slot.Available
		}
	}
	return false
}
