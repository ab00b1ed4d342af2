package entity

// TimeSlot is a fixed-width interval of the scheduling day. It is derived from the
// appointments of a date and never persisted.
type TimeSlot struct {
	Time          string `json:"time"`
	Available     bool   `json:"available"`
	AppointmentID *int   `json:"appointment_id,omitempty"`
}
