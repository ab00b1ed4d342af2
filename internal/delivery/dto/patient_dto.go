package dto

// Request DTOs

type EmergencyContactRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=50"`
	Relationship string `json:"relationship" validate:"required,min=2,max=50"`
	Phone        string `json:"phone" validate:"required,phone"`
}

// CreatePatientRequest is the add-patient form
type CreatePatientRequest struct {
	FirstName          string                   `json:"first_name" validate:"required,min=2,max=50"`
	LastName           string                   `json:"last_name" validate:"required,min=2,max=50"`
	DateOfBirth        string                   `json:"date_of_birth" validate:"required,agerange"`
	Gender             string                   `json:"gender" validate:"required,oneof=Male Female Other"`
	Email              string                   `json:"email" validate:"required,email"`
	Phone              string                   `json:"phone" validate:"required,phone"`
	Address            string                   `json:"address" validate:"required,min=10"`
	BloodGroup         string                   `json:"blood_group" validate:"required,bloodgroup"`
	Status             string                   `json:"status" validate:"omitempty,oneof=active inactive critical discharged Active Inactive Critical Discharged"`
	MedicalHistory     string                   `json:"medical_history" validate:"omitempty,max=2000"`
	Allergies          []string                 `json:"allergies" validate:"omitempty,dive,required"`
	CurrentMedications []string                 `json:"current_medications" validate:"omitempty,dive,required"`
	EmergencyContact   *EmergencyContactRequest `json:"emergency_contact" validate:"required"`
}

// UpdatePatientRequest carries the only fields the edit flow may change. Anything
// else in the body is ignored.
type UpdatePatientRequest struct {
	Email             *string `json:"email" validate:"omitempty,email"`
	Phone             *string `json:"phone" validate:"omitempty,phone"`
	Address           *string `json:"address" validate:"omitempty,min=10"`
	Status            *string `json:"status" validate:"omitempty,oneof=active inactive critical discharged Active Inactive Critical Discharged"`
	CurrentMedication *string `json:"current_medication" validate:"omitempty,max=500"`
}

// Response DTOs

type EmergencyContactResponse struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

type PatientResponse struct {
	ID                 string                    `json:"id"`
	FirstName          string                    `json:"first_name"`
	LastName           string                    `json:"last_name"`
	FullName           string                    `json:"full_name"`
	DateOfBirth        string                    `json:"date_of_birth"`
	Age                int                       `json:"age"`
	Gender             string                    `json:"gender"`
	Email              string                    `json:"email"`
	Phone              string                    `json:"phone"`
	Address            string                    `json:"address"`
	BloodGroup         string                    `json:"blood_group"`
	Status             string                    `json:"status"`
	StatusLabel        string                    `json:"status_label"`
	LastVisit          string                    `json:"last_visit,omitempty"`
	AdmissionDate      string                    `json:"admission_date,omitempty"`
	MedicalHistory     string                    `json:"medical_history,omitempty"`
	Allergies          []string                  `json:"allergies"`
	CurrentMedications []string                  `json:"current_medications"`
	CurrentMedication  string                    `json:"current_medication,omitempty"`
	EmergencyContact   *EmergencyContactResponse `json:"emergency_contact,omitempty"`
}

type PatientListResponse struct {
	Patients []PatientResponse `json:"patients"`
	Total    int               `json:"total"`
	Search   string            `json:"search,omitempty"`
	Status   string            `json:"status"`
}
