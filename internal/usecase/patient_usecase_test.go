package usecase

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"patient-management/internal/delivery/dto"
	"patient-management/internal/domain/entity"
	"patient-management/internal/infrastructure/store"
	"patient-management/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func rosterFixture() []entity.Patient {
	return []entity.Patient{
		{ID: "1", FirstName: "John", LastName: "Doe", Email: "john.doe@example.com", DateOfBirth: "1985-06-20", Status: "Active", Phone: "+1 555 0100"},
		{ID: "2", FirstName: "Jane", LastName: "Roe", Email: "jane.roe@example.com", DateOfBirth: "1990-01-01", Status: "Critical"},
		{ID: "3", FirstName: "Ali", LastName: "Khan", Email: "ali@example.com", DateOfBirth: "2000-12-31", Status: "Inactive"},
	}
}

func newPatientUsecase(repo *fakePatientRepo, audit *fakeAudit) *patientUsecase {
	uc := NewPatientUsecase(newTestLogger(), repo, service.NewRosterCache(time.Minute, nil), audit).(*patientUsecase)
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func validCreateRequest() *dto.CreatePatientRequest {
	return &dto.CreatePatientRequest{
		FirstName:          " Mary ",
		LastName:           "Major",
		DateOfBirth:        "1970-04-02",
		Gender:             "Female",
		Email:              "mary@example.com",
		Phone:              "+1 (555) 010-2000",
		Address:            "12 Harbour Street, Springfield",
		BloodGroup:         "O+",
		Status:             "critical",
		Allergies:          []string{"Penicillin", " "},
		CurrentMedications: []string{"Aspirin", "Metformin"},
		EmergencyContact:   &dto.EmergencyContactRequest{Name: "Tom Major", Relationship: "Spouse", Phone: "+1 555 010 2001"},
	}
}

func TestPatientUsecase_GetPatients(t *testing.T) {
	tests := []struct {
		name   string
		filter entity.RosterFilter
		ids    []string
	}{
		{"everything", entity.RosterFilter{}, []string{"1", "2", "3"}},
		{"term on first name", entity.RosterFilter{Term: "  JO "}, []string{"1"}},
		{"term on email", entity.RosterFilter{Term: "example.com"}, []string{"1", "2", "3"}},
		{"status only", entity.RosterFilter{Status: "critical"}, []string{"2"}},
		{"term and status", entity.RosterFilter{Term: "j", Status: "Active"}, []string{"1"}},
		{"no match", entity.RosterFilter{Term: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newPatientUsecase(newFakePatientRepo(rosterFixture()...), &fakeAudit{})

			resp, err := uc.GetPatients(context.Background(), tt.filter)
			require.NoError(t, err)

			ids := []string{}
			for _, p := range resp.Patients {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, len(tt.ids), resp.Total)
		})
	}
}

func TestPatientUsecase_GetPatientsDerivedFields(t *testing.T) {
	uc := newPatientUsecase(newFakePatientRepo(rosterFixture()...), &fakeAudit{})

	resp, err := uc.GetPatients(context.Background(), entity.RosterFilter{Term: "john"})
	require.NoError(t, err)
	require.Len(t, resp.Patients, 1)

	assert.Equal(t, 38, resp.Patients[0].Age)
	assert.Equal(t, "✓ Active", resp.Patients[0].StatusLabel)
	assert.Equal(t, "John Doe", resp.Patients[0].FullName)
	assert.Equal(t, "john", resp.Search)
	assert.Equal(t, entity.StatusAll, resp.Status)
}

func TestPatientUsecase_RosterIsCached(t *testing.T) {
	repo := newFakePatientRepo(rosterFixture()...)
	uc := newPatientUsecase(repo, &fakeAudit{})
	ctx := asDoctor(context.Background())

	_, err := uc.GetPatients(ctx, entity.RosterFilter{})
	require.NoError(t, err)
	_, err = uc.GetPatients(ctx, entity.RosterFilter{Term: "jane"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)

	require.NoError(t, uc.DeletePatient(ctx, "3"))
	resp, err := uc.GetPatients(ctx, entity.RosterFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.lists)
	assert.Equal(t, 2, resp.Total)
}

func TestPatientUsecase_StoreErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", &store.Error{Kind: store.ErrUnauthorized, Method: http.MethodGet, Path: "/patients", Status: 401}, ErrStoreUnauthorized},
		{"server", &store.Error{Kind: store.ErrServer, Method: http.MethodGet, Path: "/patients", Status: 503}, ErrStoreUnavailable},
		{"network", &store.Error{Kind: store.ErrNetwork, Method: http.MethodGet, Path: "/patients", Err: assert.AnError}, ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakePatientRepo()
			repo.err = tt.err
			uc := newPatientUsecase(repo, &fakeAudit{})

			_, err := uc.GetPatients(context.Background(), entity.RosterFilter{})
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestPatientUsecase_GetPatientNotFound(t *testing.T) {
	uc := newPatientUsecase(newFakePatientRepo(rosterFixture()...), &fakeAudit{})

	_, err := uc.GetPatient(context.Background(), "42")
	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPatientUsecase_CreatePatient(t *testing.T) {
	repo := newFakePatientRepo(rosterFixture()...)
	audit := &fakeAudit{}
	uc := newPatientUsecase(repo, audit)

	resp, err := uc.CreatePatient(asDoctor(context.Background()), validCreateRequest())
	require.NoError(t, err)

	stored := repo.patients[entity.PatientID(resp.ID)]
	assert.Equal(t, "Mary", stored.FirstName)
	assert.Equal(t, "Mary Major", stored.Name)
	assert.Equal(t, "2024-03-15", stored.LastVisit)
	assert.Equal(t, "2024-03-15", stored.AdmissionDate)
	assert.Equal(t, entity.PatientStatusCritical, stored.Status)
	assert.Equal(t, "Aspirin, Metformin", stored.CurrentMedication)
	assert.Equal(t, []string{"Penicillin"}, stored.Allergies)
	assert.Equal(t, DefaultMedicalHistory, stored.MedicalHistory)
	assert.Equal(t, "Spouse", stored.EmergencyContact.Relationship)

	assert.Equal(t, 53, resp.Age)
	assert.Equal(t, "⚠ Critical", resp.StatusLabel)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, entity.AuditActionPatientCreate, audit.entries[0].action)
	assert.Equal(t, entity.Actor{UserID: 2, Username: "doctor"}, audit.entries[0].actor)
	assert.Equal(t, resp.ID, audit.entries[0].entityID)
}

func TestPatientUsecase_CreatePatientDefaults(t *testing.T) {
	repo := newFakePatientRepo()
	uc := newPatientUsecase(repo, &fakeAudit{})

	req := validCreateRequest()
	req.Status = ""
	req.MedicalHistory = "Asthma"
	req.CurrentMedications = nil

	resp, err := uc.CreatePatient(context.Background(), req)
	require.NoError(t, err)

	stored := repo.patients[entity.PatientID(resp.ID)]
	assert.Equal(t, entity.PatientStatusActive, stored.Status)
	assert.Equal(t, "Asthma", stored.MedicalHistory)
	assert.Empty(t, stored.CurrentMedication)
	assert.Equal(t, []string{}, stored.CurrentMedications)
}

func TestPatientUsecase_CreatePatientWithoutEmergencyContact(t *testing.T) {
	repo := newFakePatientRepo()
	uc := newPatientUsecase(repo, &fakeAudit{})

	req := validCreateRequest()
	req.EmergencyContact = nil

	var resp *dto.PatientResponse
	require.NotPanics(t, func() {
		var err error
		resp, err = uc.CreatePatient(context.Background(), req)
		require.NoError(t, err)
	})

	stored := repo.patients[entity.PatientID(resp.ID)]
	assert.Nil(t, stored.EmergencyContact)
}

func TestPatientUsecase_CreatePatientDuplicateEmail(t *testing.T) {
	repo := newFakePatientRepo(rosterFixture()...)
	audit := &fakeAudit{}
	uc := newPatientUsecase(repo, audit)

	req := validCreateRequest()
	req.Email = "JOHN.DOE@example.com"

	_, err := uc.CreatePatient(context.Background(), req)
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	assert.Len(t, repo.patients, 3)
	assert.Empty(t, audit.actions())
}

func TestPatientUsecase_UpdatePatientAppliesAllowListOnly(t *testing.T) {
	repo := newFakePatientRepo(rosterFixture()...)
	audit := &fakeAudit{}
	uc := newPatientUsecase(repo, audit)

	email := "johnny@example.com"
	address := "221B Baker Street, London"
	status := "discharged"
	medication := "Ibuprofen"

	resp, err := uc.UpdatePatient(asDoctor(context.Background()), "1", &dto.UpdatePatientRequest{
		Email:             &email,
		Address:           &address,
		Status:            &status,
		CurrentMedication: &medication,
	})
	require.NoError(t, err)

	require.NotNil(t, repo.updated)
	assert.Equal(t, email, repo.updated.Email)
	assert.Equal(t, address, repo.updated.Address)
	assert.Equal(t, entity.PatientStatusDischarged, repo.updated.Status)
	assert.Equal(t, medication, repo.updated.CurrentMedication)
	assert.Equal(t, "2024-03-15", repo.updated.LastVisit)

	// untouched fields survive the full write
	assert.Equal(t, "John", repo.updated.FirstName)
	assert.Equal(t, "+1 555 0100", repo.updated.Phone)
	assert.Equal(t, "1985-06-20", repo.updated.DateOfBirth)

	assert.Equal(t, "Discharged", resp.StatusLabel)
	assert.Equal(t, []string{entity.AuditActionPatientUpdate}, audit.actions())
}

func TestPatientUsecase_UpdatePatientEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  error
	}{
		{"taken by another patient", "jane.roe@example.com", ErrEmailAlreadyExists},
		{"own email in other case", "JOHN.DOE@example.com", nil},
		{"free", "new@example.com", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newPatientUsecase(newFakePatientRepo(rosterFixture()...), &fakeAudit{})

			email := tt.email
			_, err := uc.UpdatePatient(context.Background(), "1", &dto.UpdatePatientRequest{Email: &email})
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPatientUsecase_UpdatePatientNotFound(t *testing.T) {
	uc := newPatientUsecase(newFakePatientRepo(rosterFixture()...), &fakeAudit{})

	_, err := uc.UpdatePatient(context.Background(), "9", &dto.UpdatePatientRequest{})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestPatientUsecase_DeletePatient(t *testing.T) {
	repo := newFakePatientRepo(rosterFixture()...)
	audit := &fakeAudit{}
	uc := newPatientUsecase(repo, audit)

	require.NoError(t, uc.DeletePatient(asDoctor(context.Background()), "2"))
	assert.NotContains(t, repo.patients, entity.PatientID("2"))
	assert.Equal(t, []string{entity.AuditActionPatientDelete}, audit.actions())

	assert.ErrorIs(t, uc.DeletePatient(context.Background(), "2"), ErrPatientNotFound)
}

func TestPatientUsecase_ExportPatients(t *testing.T) {
	uc := newPatientUsecase(newFakePatientRepo(rosterFixture()...), &fakeAudit{})

	content, err := uc.ExportPatients(context.Background(), entity.RosterFilter{Status: "critical"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Patients")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[1][0])
	assert.Equal(t, "Jane", rows[1][1])
}
