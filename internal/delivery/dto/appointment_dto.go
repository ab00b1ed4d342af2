package dto

import "time"

// Request DTOs

type CreateAppointmentRequest struct {
	PatientID       string `json:"patient_id" validate:"required"`
	AppointmentDate string `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	AppointmentTime string `json:"appointment_time" validate:"required,slottime"`
	Duration        int    `json:"duration" validate:"omitempty,gte=15,lte=480"`
	Type            string `json:"type" validate:"required,oneof=Consultation Follow-up Emergency Surgery"`
	Notes           string `json:"notes" validate:"omitempty,max=1000"`
	RoomNumber      string `json:"room_number" validate:"omitempty,max=32"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Scheduled Confirmed Completed Cancelled"`
}

// Response DTOs

type AppointmentResponse struct {
	ID              int       `json:"id"`
	PatientID       string    `json:"patient_id"`
	PatientName     string    `json:"patient_name"`
	DoctorName      string    `json:"doctor_name"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	Duration        int       `json:"duration"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	RoomNumber      string    `json:"room_number,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

type TimeSlotResponse struct {
	Time          string `json:"time"`
	Available     bool   `json:"available"`
	AppointmentID *int   `json:"appointment_id,omitempty"`
}

type SlotListResponse struct {
	Date      string             `json:"date"`
	Slots     []TimeSlotResponse `json:"slots"`
	Available int                `json:"available"`
}
