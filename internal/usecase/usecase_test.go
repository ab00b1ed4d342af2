package usecase

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"patient-management/internal/auth"
	"patient-management/internal/delivery/http/middleware"
	"patient-management/internal/domain/entity"
	"patient-management/internal/infrastructure/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

var (
	directoryOnce sync.Once
	directory     *auth.Directory
)

// testDirectory shares one directory since bcrypt hashing is slow.
func testDirectory(t *testing.T) *auth.Directory {
	t.Helper()
	directoryOnce.Do(func() {
		d, err := auth.NewDefaultDirectory()
		if err != nil {
			panic(err)
		}
		directory = d
	})
	return directory
}

func asDoctor(ctx context.Context) context.Context {
	return middleware.WithIdentity(ctx, middleware.Identity{
		UserID:   2,
		Username: "doctor",
		Role:     entity.RoleDoctor,
		TokenID:  "token-id",
		Token:    "token",
	})
}

type auditEntry struct {
	actor    entity.Actor
	action   string
	entityID string
	inTx     bool
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
	err     error
}

func (f *fakeAudit) record(tx *gorm.DB, actor entity.Actor, action, entityID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{actor: actor, action: action, entityID: entityID, inTx: tx != nil})
	return f.err
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]string, len(f.entries))
	for i, e := range f.entries {
		actions[i] = e.action
	}
	return actions
}

func (f *fakeAudit) LogAction(_ context.Context, tx *gorm.DB, actor entity.Actor, action string, _ entity.JSON) error {
	return f.record(tx, actor, action, "")
}

func (f *fakeAudit) LogCreate(_ context.Context, tx *gorm.DB, actor entity.Actor, action string, _ string, entityID string, _ interface{}) error {
	return f.record(tx, actor, action, entityID)
}

func (f *fakeAudit) LogUpdate(_ context.Context, tx *gorm.DB, actor entity.Actor, action string, _ string, entityID string, _, _ interface{}) error {
	return f.record(tx, actor, action, entityID)
}

func (f *fakeAudit) LogDelete(_ context.Context, tx *gorm.DB, actor entity.Actor, action string, _ string, entityID string, _ interface{}) error {
	return f.record(tx, actor, action, entityID)
}

// fakePatientRepo is an in-memory backing store. err, when set, fails every call.
type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[entity.PatientID]entity.Patient
	nextID   int
	lists    int
	err      error
	updated  *entity.Patient
}

func newFakePatientRepo(patients ...entity.Patient) *fakePatientRepo {
	r := &fakePatientRepo{patients: make(map[entity.PatientID]entity.Patient), nextID: 100}
	for _, p := range patients {
		r.patients[p.ID] = p
	}
	return r
}

func (r *fakePatientRepo) List(context.Context) ([]entity.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	if r.err != nil {
		return nil, r.err
	}
	out := make([]entity.Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePatientRepo) Get(_ context.Context, id entity.PatientID) (*entity.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.patients[id]
	if !ok {
		return nil, &store.Error{Kind: store.ErrNotFound, Method: http.MethodGet, Path: "/patients/" + id.String(), Status: http.StatusNotFound}
	}
	return &p, nil
}

func (r *fakePatientRepo) Create(_ context.Context, patient *entity.Patient) (*entity.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	created := *patient
	created.ID = entity.PatientID(strconv.Itoa(r.nextID))
	r.nextID++
	r.patients[created.ID] = created
	return &created, nil
}

func (r *fakePatientRepo) Update(_ context.Context, id entity.PatientID, patient *entity.Patient) (*entity.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	updated := *patient
	updated.ID = id
	r.patients[id] = updated
	r.updated = &updated
	return &updated, nil
}

func (r *fakePatientRepo) Delete(_ context.Context, id entity.PatientID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	delete(r.patients, id)
	return nil
}

// fakeAppointmentRepo ignores the db handle and keeps rows in memory.
type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[int]entity.Appointment
	nextID       int
	createErr    error
}

func newFakeAppointmentRepo(appointments ...entity.Appointment) *fakeAppointmentRepo {
	r := &fakeAppointmentRepo{appointments: make(map[int]entity.Appointment), nextID: 1}
	for _, a := range appointments {
		r.appointments[a.ID] = a
		if a.ID >= r.nextID {
			r.nextID = a.ID + 1
		}
	}
	return r
}

func (r *fakeAppointmentRepo) Create(_ *gorm.DB, appointment *entity.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	appointment.ID = r.nextID
	r.nextID++
	r.appointments[appointment.ID] = *appointment
	return nil
}

func (r *fakeAppointmentRepo) FindByID(_ *gorm.DB, id int) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *fakeAppointmentRepo) filter(keep func(entity.Appointment) bool) []entity.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.Appointment{}
	for _, a := range r.appointments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeAppointmentRepo) FindByDate(_ *gorm.DB, date time.Time) ([]entity.Appointment, error) {
	return r.filter(func(a entity.Appointment) bool { return a.OnDate(date) }), nil
}

func (r *fakeAppointmentRepo) FindActiveByDate(_ *gorm.DB, date time.Time) ([]entity.Appointment, error) {
	return r.filter(func(a entity.Appointment) bool { return a.OnDate(date) && !a.IsCancelled() }), nil
}

func (r *fakeAppointmentRepo) FindFrom(_ *gorm.DB, from time.Time) ([]entity.Appointment, error) {
	return r.filter(func(a entity.Appointment) bool { return !a.AppointmentDate.Before(from) }), nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ *gorm.DB, id int, status entity.AppointmentStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return 0, nil
	}
	a.Status = status
	r.appointments[id] = a
	return 1, nil
}

func (r *fakeAppointmentRepo) Delete(_ *gorm.DB, id int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[id]; !ok {
		return 0, nil
	}
	delete(r.appointments, id)
	return 1, nil
}
