package repository

import (
	"time"

	"patient-management/internal/domain/entity"

	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id int) (*entity.Appointment, error)
	FindByDate(db *gorm.DB, date time.Time) ([]entity.Appointment, error)
	FindActiveByDate(db *gorm.DB, date time.Time) ([]entity.Appointment, error)
	FindFrom(db *gorm.DB, from time.Time) ([]entity.Appointment, error)
	UpdateStatus(db *gorm.DB, id int, status entity.AppointmentStatus) (int64, error)
	Delete(db *gorm.DB, id int) (int64, error)
}
