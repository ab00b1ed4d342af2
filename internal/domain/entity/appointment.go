package entity

import (
	"time"
)

// AppointmentType represents the kind of visit
type AppointmentType string

const (
	AppointmentTypeConsultation AppointmentType = "Consultation"
	AppointmentTypeFollowUp     AppointmentType = "Follow-up"
	AppointmentTypeEmergency    AppointmentType = "Emergency"
	AppointmentTypeSurgery      AppointmentType = "Surgery"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "Scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "Confirmed"
	AppointmentStatusCompleted AppointmentStatus = "Completed"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
)

// DefaultAppointmentDuration in minutes
const DefaultAppointmentDuration = 30

// Appointment represents a scheduled visit of a patient with a doctor
type Appointment struct {
	ID              int               `gorm:"primaryKey;autoIncrement" json:"id"`
	PatientID       string            `gorm:"type:varchar(64);not null;index" json:"patient_id"`
	PatientName     string            `gorm:"type:varchar(255);not null" json:"patient_name"`
	DoctorName      string            `gorm:"type:varchar(255);not null" json:"doctor_name"`
	AppointmentDate time.Time         `gorm:"type:date;not null;index" json:"appointment_date"`
	AppointmentTime string            `gorm:"type:varchar(5);not null" json:"appointment_time"`
	Duration        int               `gorm:"not null;default:30" json:"duration"`
	Type            AppointmentType   `gorm:"type:varchar(32);not null" json:"type"`
	Status          AppointmentStatus `gorm:"type:varchar(32);not null;default:'Scheduled';index" json:"status"`
	Notes           string            `gorm:"type:text" json:"notes,omitempty"`
	RoomNumber      string            `gorm:"type:varchar(32)" json:"room_number,omitempty"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// OnDate reports whether the appointment falls on the calendar date of day.
func (a *Appointment) OnDate(day time.Time) bool {
	y1, m1, d1 := a.AppointmentDate.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// IsCancelled checks if appointment is cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// Cancel changes appointment status to cancelled
func (a *Appointment) Cancel() {
	a.Status = AppointmentStatusCancelled
}

// AppointmentTypes lists accepted appointment types
var AppointmentTypes = []AppointmentType{
	AppointmentTypeConsultation,
	AppointmentTypeFollowUp,
	AppointmentTypeEmergency,
	AppointmentTypeSurgery,
}

// AppointmentStatuses lists accepted appointment statuses
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusScheduled,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
}
