package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Patient statuses
const (
	PatientStatusActive     = "Active"
	PatientStatusInactive   = "Inactive"
	PatientStatusCritical   = "Critical"
	PatientStatusDischarged = "Discharged"
)

// PatientStatuses lists the statuses accepted by the add and edit flows.
var PatientStatuses = []string{
	PatientStatusActive,
	PatientStatusInactive,
	PatientStatusCritical,
	PatientStatusDischarged,
}

// BloodGroups lists the accepted ABO/Rh blood groups.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// PatientID is the backing store identifier. The store may emit it as a JSON number
// or a JSON string; it is always held as a string.
type PatientID string

func (id *PatientID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = PatientID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("patient id: %w", err)
	}
	*id = PatientID(n.String())
	return nil
}

func (id PatientID) String() string {
	return string(id)
}

// EmergencyContact of a patient
type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

// Patient is a record owned by the backing store. JSON tags follow the store's format.
type Patient struct {
	ID                 PatientID         `json:"id,omitempty"`
	FirstName          string            `json:"firstName"`
	LastName           string            `json:"lastName"`
	Name               string            `json:"name,omitempty"`
	DateOfBirth        string            `json:"dateOfBirth"`
	Gender             string            `json:"gender"`
	Email              string            `json:"email"`
	Phone              string            `json:"phone"`
	Address            string            `json:"address"`
	BloodGroup         string            `json:"bloodGroup"`
	Status             string            `json:"status"`
	LastVisit          string            `json:"lastVisit"`
	MedicalHistory     string            `json:"medicalHistory"`
	Allergies          []string          `json:"allergies"`
	CurrentMedications []string          `json:"currentMedications"`
	CurrentMedication  string            `json:"currentMedication,omitempty"`
	AdmissionDate      string            `json:"admissionDate,omitempty"`
	EmergencyContact   *EmergencyContact `json:"emergencyContact,omitempty"`
}

// FullName returns the stored display name or derives it from the name parts.
func (p *Patient) FullName() string {
	if p.Name != "" {
		return p.Name
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Age returns the patient's age in whole years at now. When considerMonth is false only
// the calendar years are compared. An empty or unparsable date of birth yields 0.
func (p *Patient) Age(now time.Time, considerMonth bool) int {
	if p.DateOfBirth == "" {
		return 0
	}
	dob, err := time.Parse(DateLayout, p.DateOfBirth)
	if err != nil {
		return 0
	}

	age := now.Year() - dob.Year()
	if considerMonth {
		if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
			age--
		}
	}
	return age
}

// StatusLabel renders the status with its badge glyph.
func (p *Patient) StatusLabel() string {
	switch strings.ToLower(p.Status) {
	case "active":
		return "✓ Active"
	case "inactive":
		return "○ Inactive"
	case "critical":
		return "⚠ Critical"
	default:
		return p.Status
	}
}

// NormalizeStatus capitalises a known status ("critical" -> "Critical").
// Unknown values are returned unchanged.
func NormalizeStatus(status string) string {
	for _, s := range PatientStatuses {
		if strings.EqualFold(s, status) {
			return s
		}
	}
	return status
}
