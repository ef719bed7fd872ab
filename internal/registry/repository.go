package registry

import (
	"context"
	"errors"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("slot already has an appointment")
	ErrDuplicatePolicy     = errors.New("policy number already registered")
)

// Repository contains all store interactions needed by the dispatcher and
// the booking coordinator. Name lookups are case-insensitive on the full
// (last, first, middle) triple.
type Repository interface {
	CreatePatient(ctx context.Context, p Patient) (*Patient, error)
	GetPatientByID(ctx context.Context, id int64) (*Patient, error)
	GetPatientByPolicy(ctx context.Context, policyNumber string) (*Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	UpdatePatient(ctx context.Context, p Patient) error
	DeletePatient(ctx context.Context, id int64) error
	SearchPatients(ctx context.Context, query string) ([]Patient, error)
	FindPatientByName(ctx context.Context, lastName, firstName, middleName string) (*Patient, error)

	CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error)
	GetDoctorByID(ctx context.Context, id int64) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	FindDoctorByName(ctx context.Context, lastName, firstName, middleName string) (*Doctor, error)

	// For conflict checks inside the booking critical section
	FindAppointment(ctx context.Context, doctorID int64, date, timeOfDay string) (*Appointment, error)

	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status AppointmentStatus) error
	ListAppointmentsByDoctorDate(ctx context.Context, doctorID int64, date string) ([]Appointment, error)
	ListAppointmentsByDate(ctx context.Context, date string) ([]Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID int64) ([]Appointment, error)
}
