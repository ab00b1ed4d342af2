package service

import (
	"context"

	"patient-management/internal/domain/entity"
	"patient-management/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuditService interface {
	LogAction(ctx context.Context, tx *gorm.DB, actor entity.Actor, action string, metadata entity.JSON) error
	LogCreate(ctx context.Context, tx *gorm.DB, actor entity.Actor, action string, entityName string, entityID string, newValue interface{}) error
	LogUpdate(ctx context.Context, tx *gorm.DB, actor entity.Actor, action string, entityName string, entityID string, oldValue, newValue interface{}) error
	LogDelete(ctx context.Context, tx *gorm.DB, actor entity.Actor, action string, entityName string, entityID string, oldValue interface{}) error
}

type auditService struct {
	db        *gorm.DB
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(db *gorm.DB, log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		db:        db,
		log:       log,
		auditRepo: auditRepo,
	}
}

// LogAction logs an action that does not change an entity, such as a login.
func (s *auditService) LogAction(ctx context.Context, tx *gorm.DB, actor entity.Actor, action string, metadata entity.JSON) error {
	return s.write(ctx, tx, actor, action, metadata)
}

// LogCreate logs a create action
func (s *auditService) LogCreate(ctx context.Context, tx *gorm.DB, actor entity.Actor, action string, entityName string, entityID string, newValue interface{}) error {
	return s.write(ctx, tx, actor, action, entity.JSON{
		"entity":    entityName,
		"entity_id": entityID,
		"old_value": nil,
		"new_value": newValue,
	})
}

// LogUpdate logs an update action with old and new values
func (s *auditService) LogUpdate(ctx context.Context, tx *gorm.DB, actor entity.Actor, action string, entityName string, entityID string, oldValue, newValue interface{}) error {
	return s.write(ctx, tx, actor, action, entity.JSON{
		"entity":    entityName,
		"entity_id": entityID,
		"old_value": oldValue,
		"new_value": newValue,
	})
}

// LogDelete logs a delete action with old value
func (s *auditService) LogDelete(ctx context.Context, tx *gorm.DB, actor entity.Actor, action string, entityName string, entityID string, oldValue interface{}) error {
	return s.write(ctx, tx, actor, action, entity.JSON{
		"entity":    entityName,
		"entity_id": entityID,
		"old_value": oldValue,
		"new_value": nil,
	})
}

// auditSavePoint guards an audit insert inside the caller's transaction.
const auditSavePoint = "audit_log"

// write stores the entry in tx, or in a new session when tx is nil. Inside a
// transaction the insert runs under a savepoint, so a failed audit row is rolled back
// alone and the caller's transaction can still commit.
func (s *auditService) write(ctx context.Context, tx *gorm.DB, actor entity.Actor, action string, metadata entity.JSON) error {
	auditLog := &entity.AuditLog{
		Username: actor.Username,
		Action:   action,
		Metadata: metadata,
	}
	if actor.UserID != 0 {
		userID := actor.UserID
		auditLog.UserID = &userID
	}

	if tx == nil {
		if err := s.auditRepo.Create(s.db.WithContext(ctx), auditLog); err != nil {
			s.log.Warnf("Failed to create audit log: %+v", err)
			return err
		}
		return nil
	}

	if err := tx.SavePoint(auditSavePoint).Error; err != nil {
		s.log.Warnf("Failed to set audit savepoint: %+v", err)
		return err
	}
	if err := s.auditRepo.Create(tx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		if rbErr := tx.RollbackTo(auditSavePoint).Error; rbErr != nil {
			s.log.Warnf("Failed to roll back audit savepoint: %+v", rbErr)
		}
		return err
	}

	return nil
}
