package converter

import (
	"patient-management/internal/delivery/dto"
	"patient-management/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(a *entity.Appointment) *dto.AppointmentResponse {
	if a == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		PatientName:     a.PatientName,
		DoctorName:      a.DoctorName,
		AppointmentDate: a.AppointmentDate.Format(entity.DateLayout),
		AppointmentTime: a.AppointmentTime,
		Duration:        a.Duration,
		Type:            string(a.Type),
		Status:          string(a.Status),
		Notes:           a.Notes,
		RoomNumber:      a.RoomNumber,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}

// TimeSlotsToResponses converts generated slots to TimeSlotResponse DTOs
func TimeSlotsToResponses(slots []entity.TimeSlot) []dto.TimeSlotResponse {
	responses := make([]dto.TimeSlotResponse, len(slots))
	for i, slot := range slots {
		responses[i] = dto.TimeSlotResponse{
			Time:          slot.Time,
			Available:     slot.Available,
			AppointmentID: slot.AppointmentID,
		}
	}
	return responses
}
