package registry

import "fmt"

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "Scheduled"
	StatusCancelled AppointmentStatus = "Cancelled"
)

// Dates travel as "2006-01-02" strings and times of day as "15:04" strings,
// both on the wire and in storage. ISO ordering keeps them sortable as text.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Patient struct {
	ID           int64  `json:"id"`
	LastName     string `json:"lastName"`
	FirstName    string `json:"firstName"`
	MiddleName   string `json:"middleName"`
	DateOfBirth  string `json:"dateOfBirth"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	PolicyNumber string `json:"policyNumber"`
}

type Doctor struct {
	ID         int64  `json:"id"`
	LastName   string `json:"lastName"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	Specialty  string `json:"specialty"`
	Office     string `json:"office"`
}

type Appointment struct {
	ID        int64             `json:"id"`
	PatientID int64             `json:"patientId"`
	DoctorID  int64             `json:"doctorId"`
	Date      string            `json:"date"`
	Time      string            `json:"time"`
	Status    AppointmentStatus `json:"status"`
}

// SlotKey identifies one bookable slot. At most one appointment may ever
// exist per key, regardless of status.
func SlotKey(doctorID int64, date, timeOfDay string) string {
	return fmt.Sprintf("%d:%s:%s", doctorID, date, timeOfDay)
}
