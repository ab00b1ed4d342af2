package usecase

import (
	"context"
	"testing"

	"patient-management/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeAuditLogRepo struct {
	logs          []entity.AuditLog
	action        string
	limit, offset int
}

func (r *fakeAuditLogRepo) Create(_ *gorm.DB, log *entity.AuditLog) error {
	r.logs = append(r.logs, *log)
	return nil
}

func (r *fakeAuditLogRepo) FindAll(_ *gorm.DB, action string, limit, offset int) ([]entity.AuditLog, int64, error) {
	r.action, r.limit, r.offset = action, limit, offset
	return r.logs, int64(len(r.logs)), nil
}

func (r *fakeAuditLogRepo) FindByID(_ *gorm.DB, id int64) (*entity.AuditLog, error) {
	for i := range r.logs {
		if r.logs[i].ID == id {
			return &r.logs[i], nil
		}
	}
	return nil, nil
}

func TestAuditLogUsecase_GetAllAuditLogsPaging(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", 0, 0, DefaultAuditLogLimit, 0},
		{"third page", 3, 10, 10, 20},
		{"limit capped", 1, 1000, MaxAuditLogLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _ := newMockDB(t)
			repo := &fakeAuditLogRepo{logs: []entity.AuditLog{{ID: 1, Action: entity.AuditActionUserLogin}}}
			uc := NewAuditLogUsecase(db, newTestLogger(), repo)

			resp, err := uc.GetAllAuditLogs(context.Background(), entity.AuditActionUserLogin, tt.page, tt.limit)
			require.NoError(t, err)

			assert.Equal(t, entity.AuditActionUserLogin, repo.action)
			assert.Equal(t, tt.wantLimit, repo.limit)
			assert.Equal(t, tt.wantOffset, repo.offset)
			assert.Equal(t, tt.wantLimit, resp.Limit)
			assert.Equal(t, int64(1), resp.Total)
			assert.Len(t, resp.Logs, 1)
		})
	}
}

func TestAuditLogUsecase_GetAuditLog(t *testing.T) {
	db, _ := newMockDB(t)
	repo := &fakeAuditLogRepo{logs: []entity.AuditLog{{ID: 4, Username: "admin", Action: entity.AuditActionPatientDelete}}}
	uc := NewAuditLogUsecase(db, newTestLogger(), repo)

	log, err := uc.GetAuditLog(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "admin", log.Username)

	_, err = uc.GetAuditLog(context.Background(), 5)
	assert.ErrorIs(t, err, ErrAuditLogNotFound)
}
