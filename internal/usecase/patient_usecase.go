package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"patient-management/internal/converter"
	"patient-management/internal/delivery/dto"
	"patient-management/internal/delivery/http/middleware"
	"patient-management/internal/domain/entity"
	"patient-management/internal/domain/repository"
	"patient-management/internal/infrastructure/store"
	"patient-management/internal/roster"
	"patient-management/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	ErrPatientNotFound    = errors.New("patient not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrStoreUnauthorized  = errors.New("backing store rejected the session")
	ErrStoreUnavailable   = errors.New("backing store unavailable")
)

// DefaultMedicalHistory is stored when the add form leaves the history empty.
const DefaultMedicalHistory = "No medical history provided"

type PatientUsecase interface {
	GetPatients(ctx context.Context, filter entity.RosterFilter) (*dto.PatientListResponse, error)
	ExportPatients(ctx context.Context, filter entity.RosterFilter) ([]byte, error)
	GetPatient(ctx context.Context, id entity.PatientID) (*dto.PatientResponse, error)
	CreatePatient(ctx context.Context, req *dto.CreatePatientRequest) (*dto.PatientResponse, error)
	UpdatePatient(ctx context.Context, id entity.PatientID, req *dto.UpdatePatientRequest) (*dto.PatientResponse, error)
	DeletePatient(ctx context.Context, id entity.PatientID) error
}

type patientUsecase struct {
	log          *logrus.Logger
	patientRepo  repository.PatientRepository
	rosterCache  *service.RosterCache
	auditService service.AuditService
	now          func() time.Time
}

func NewPatientUsecase(
	log *logrus.Logger,
	patientRepo repository.PatientRepository,
	rosterCache *service.RosterCache,
	auditService service.AuditService,
) PatientUsecase {
	return &patientUsecase{
		log:          log,
		patientRepo:  patientRepo,
		rosterCache:  rosterCache,
		auditService: auditService,
		now:          time.Now,
	}
}

// GetPatients returns the roster narrowed by filter.
func (u *patientUsecase) GetPatients(ctx context.Context, filter entity.RosterFilter) (*dto.PatientListResponse, error) {
	all, err := u.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	filter = filter.Normalized()
	visible := roster.Apply(all, filter)

	return &dto.PatientListResponse{
		Patients: converter.PatientsToResponses(visible, u.now()),
		Total:    len(visible),
		Search:   filter.Term,
		Status:   filter.Status,
	}, nil
}

// ExportPatients renders the filtered roster as an xlsx workbook.
func (u *patientUsecase) ExportPatients(ctx context.Context, filter entity.RosterFilter) ([]byte, error) {
	all, err := u.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	content, err := service.ExportRoster(roster.Apply(all, filter.Normalized()), u.now())
	if err != nil {
		u.log.Warnf("Failed to export roster: %+v", err)
		return nil, err
	}
	return content, nil
}

func (u *patientUsecase) GetPatient(ctx context.Context, id entity.PatientID) (*dto.PatientResponse, error) {
	patient, err := u.patientRepo.Get(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to get patient %s: %+v", id, err)
		return nil, storeError(err)
	}

	return converter.PatientToResponse(patient, u.now()), nil
}

func (u *patientUsecase) CreatePatient(ctx context.Context, req *dto.CreatePatientRequest) (*dto.PatientResponse, error) {
	all, err := u.loadRoster(ctx)
	if err != nil {
		return nil, err
	}
	if emailTaken(all, req.Email, "") {
		return nil, ErrEmailAlreadyExists
	}

	today := u.now().Format(entity.DateLayout)
	status := entity.NormalizeStatus(strings.TrimSpace(req.Status))
	if status == "" {
		status = entity.PatientStatusActive
	}
	history := strings.TrimSpace(req.MedicalHistory)
	if history == "" {
		history = DefaultMedicalHistory
	}

	patient := &entity.Patient{
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		DateOfBirth:        req.DateOfBirth,
		Gender:             req.Gender,
		Email:              strings.TrimSpace(req.Email),
		Phone:              req.Phone,
		Address:            req.Address,
		BloodGroup:         req.BloodGroup,
		Status:             status,
		LastVisit:          today,
		AdmissionDate:      today,
		MedicalHistory:     history,
		Allergies:          nonEmpty(req.Allergies),
		CurrentMedications: nonEmpty(req.CurrentMedications),
	}
	if req.EmergencyContact != nil {
		patient.EmergencyContact = &entity.EmergencyContact{
			Name:         req.EmergencyContact.Name,
			Relationship: req.EmergencyContact.Relationship,
			Phone:        req.EmergencyContact.Phone,
		}
	}
	patient.Name = patient.FirstName + " " + patient.LastName
	patient.CurrentMedication = strings.Join(patient.CurrentMedications, ", ")

	created, err := u.patientRepo.Create(ctx, patient)
	if err != nil {
		u.log.Warnf("Failed to create patient: %+v", err)
		return nil, storeError(err)
	}
	u.rosterCache.Invalidate()

	resp := converter.PatientToResponse(created, u.now())
	if err := u.auditService.LogCreate(ctx, nil, middleware.ActorFromContext(ctx), entity.AuditActionPatientCreate, "patient", created.ID.String(), resp); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	u.log.Infof("Patient created: id=%s", created.ID)
	return resp, nil
}

// UpdatePatient applies the editable fields only and stamps the last visit with today.
// The record is written back in full.
func (u *patientUsecase) UpdatePatient(ctx context.Context, id entity.PatientID, req *dto.UpdatePatientRequest) (*dto.PatientResponse, error) {
	patient, err := u.patientRepo.Get(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to get patient %s: %+v", id, err)
		return nil, storeError(err)
	}
	oldValue := converter.PatientToResponse(patient, u.now())

	if req.Email != nil && !strings.EqualFold(*req.Email, patient.Email) {
		all, err := u.loadRoster(ctx)
		if err != nil {
			return nil, err
		}
		if emailTaken(all, *req.Email, id) {
			return nil, ErrEmailAlreadyExists
		}
		patient.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.Status != nil {
		patient.Status = entity.NormalizeStatus(*req.Status)
	}
	if req.CurrentMedication != nil {
		patient.CurrentMedication = *req.CurrentMedication
	}
	patient.LastVisit = u.now().Format(entity.DateLayout)

	updated, err := u.patientRepo.Update(ctx, id, patient)
	if err != nil {
		u.log.Warnf("Failed to update patient %s: %+v", id, err)
		return nil, storeError(err)
	}
	u.rosterCache.Invalidate()

	newValue := converter.PatientToResponse(updated, u.now())
	if err := u.auditService.LogUpdate(ctx, nil, middleware.ActorFromContext(ctx), entity.AuditActionPatientUpdate, "patient", id.String(), oldValue, newValue); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return newValue, nil
}

func (u *patientUsecase) DeletePatient(ctx context.Context, id entity.PatientID) error {
	patient, err := u.patientRepo.Get(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to get patient %s: %+v", id, err)
		return storeError(err)
	}
	oldValue := converter.PatientToResponse(patient, u.now())

	if err := u.patientRepo.Delete(ctx, id); err != nil {
		u.log.Warnf("Failed to delete patient %s: %+v", id, err)
		return storeError(err)
	}
	u.rosterCache.Invalidate()

	if err := u.auditService.LogDelete(ctx, nil, middleware.ActorFromContext(ctx), entity.AuditActionPatientDelete, "patient", id.String(), oldValue); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
	}

	return nil
}

// loadRoster returns the cached roster or reads it from the backing store.
func (u *patientUsecase) loadRoster(ctx context.Context) ([]entity.Patient, error) {
	if patients, ok := u.rosterCache.Get(); ok {
		return patients, nil
	}

	patients, err := u.patientRepo.List(ctx)
	if err != nil {
		u.log.Warnf("Failed to list patients: %+v", err)
		return nil, storeError(err)
	}
	u.rosterCache.Set(patients)
	return patients, nil
}

// emailTaken reports whether another patient than except already uses email.
func emailTaken(patients []entity.Patient, email string, except entity.PatientID) bool {
	email = strings.TrimSpace(email)
	for i := range patients {
		if patients[i].ID != except && strings.EqualFold(patients[i].Email, email) {
			return true
		}
	}
	return false
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// storeError maps backing store failures onto usecase errors. The original error stays
// in the chain.
func storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrPatientNotFound, err)
	case errors.Is(err, store.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrStoreUnauthorized, err)
	case errors.Is(err, store.ErrServer), errors.Is(err, store.ErrNetwork):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	default:
		return err
	}
}
