package converter

import (
	"time"

	"patient-management/internal/delivery/dto"
	"patient-management/internal/domain/entity"
)

// PatientToResponse converts a Patient entity to PatientResponse DTO. now is the
// reference time of the derived age.
func PatientToResponse(p *entity.Patient, now time.Time) *dto.PatientResponse {
	if p == nil {
		return nil
	}

	resp := &dto.PatientResponse{
		ID:                 p.ID.String(),
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		FullName:           p.FullName(),
		DateOfBirth:        p.DateOfBirth,
		Age:                p.Age(now, true),
		Gender:             p.Gender,
		Email:              p.Email,
		Phone:              p.Phone,
		Address:            p.Address,
		BloodGroup:         p.BloodGroup,
		Status:             p.Status,
		StatusLabel:        p.StatusLabel(),
		LastVisit:          p.LastVisit,
		AdmissionDate:      p.AdmissionDate,
		MedicalHistory:     p.MedicalHistory,
		Allergies:          nonNil(p.Allergies),
		CurrentMedications: nonNil(p.CurrentMedications),
		CurrentMedication:  p.CurrentMedication,
	}

	if p.EmergencyContact != nil {
		resp.EmergencyContact = &dto.EmergencyContactResponse{
			Name:         p.EmergencyContact.Name,
			Relationship: p.EmergencyContact.Relationship,
			Phone:        p.EmergencyContact.Phone,
		}
	}

	return resp
}

// PatientsToResponses converts a slice of Patient entities to slice of PatientResponse DTOs
func PatientsToResponses(patients []entity.Patient, now time.Time) []dto.PatientResponse {
	responses := make([]dto.PatientResponse, len(patients))
	for i := range patients {
		responses[i] = *PatientToResponse(&patients[i], now)
	}
	return responses
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
