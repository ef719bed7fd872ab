package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
)

// Operation codes a client may put on the wire. The set is closed: any
// other value is answered with an unknown-operation failure.
const (
	OpLoginPatient      = "login-patient"
	OpLoginDoctor       = "login-doctor"
	OpLogout            = "logout"
	OpAddPatient        = "add-patient"
	OpGetAllPatients    = "get-all-patients"
	OpUpdatePatient     = "update-patient"
	OpDeletePatient     = "delete-patient"
	OpSearchPatients    = "search-patients"
	OpGetPatientDetails = "get-patient-details"
	OpAddDoctor         = "add-doctor"
	OpGetAllDoctors     = "get-all-doctors"
	OpGetDoctorDetails  = "get-doctor-details"
	OpBookAppointment   = "book-appointment"
	OpCancelAppointment = "cancel-appointment"
	OpGetAppointments   = "get-appointments"
	OpGetSchedule       = "get-schedule"
	OpGetFreeSlots      = "get-free-slots"
	OpGetPatientHistory = "get-patient-history"
)

// Request is one frame sent by a client: an operation code plus an
// operation-specific payload, decoded further by the dispatcher.
type Request struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the uniform outcome of any dispatched operation.
type Response struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Per-operation payload shapes.

type Credentials struct {
	LastName   string `json:"lastName"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
}

type PatientPayload struct {
	ID           int64  `json:"id,omitempty"`
	LastName     string `json:"lastName"`
	FirstName    string `json:"firstName"`
	MiddleName   string `json:"middleName"`
	DateOfBirth  string `json:"dateOfBirth"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	PolicyNumber string `json:"policyNumber"`
}

type DoctorPayload struct {
	LastName   string `json:"lastName"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	Specialty  string `json:"specialty"`
	Office     string `json:"office"`
}

type IDPayload struct {
	ID int64 `json:"id"`
}

type SearchPayload struct {
	Query string `json:"query"`
}

type BookPayload struct {
	PatientID int64  `json:"patientId"`
	DoctorID  int64  `json:"doctorId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type DoctorDatePayload struct {
	DoctorID int64  `json:"doctorId"`
	Date     string `json:"date"`
}

type DatePayload struct {
	Date string `json:"date"`
}

// ReadRequest reads one newline-delimited JSON request frame. A transport
// error or an undecodable frame is returned as-is; the caller decides the
// fate of the connection.
func ReadRequest(r *bufio.Reader) (Request, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return Request{}, err
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("decode request frame: %w", err)
	}

	return req, nil
}

// WriteResponse writes one newline-delimited JSON response frame.
func WriteResponse(w *bufio.Writer, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response frame: %w", err)
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return w.Flush()
}
