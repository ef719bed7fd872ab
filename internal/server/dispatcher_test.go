package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/marinaerokhina/PoliclinicRegistry/internal/lock"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/protocol"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/registry"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *registry.MemRepository) {
	t.Helper()
	repo := registry.NewMemRepository()
	booking := registry.NewCoordinator(repo, lock.NewKeyedMutex())
	return NewDispatcher(repo, booking, registry.DefaultGrid), repo
}

func seedClinic(t *testing.T, repo *registry.MemRepository) (patientID, doctorID int64) {
	t.Helper()
	ctx := context.Background()

	p, err := repo.CreatePatient(ctx, registry.Patient{
		LastName: "Ivanov", FirstName: "Ivan", MiddleName: "Ivanovich",
		DateOfBirth: "1990-05-15", PolicyNumber: "POL1234567890",
	})
	if err != nil {
		t.Fatalf("CreatePatient() error = %v", err)
	}
	d, err := repo.CreateDoctor(ctx, registry.Doctor{
		LastName: "Sidorov", FirstName: "Petr", MiddleName: "Alekseevich",
		Specialty: "Therapist", Office: "101",
	})
	if err != nil {
		t.Fatalf("CreateDoctor() error = %v", err)
	}
	return p.ID, d.ID
}

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func dispatch(t *testing.T, d *Dispatcher, sess *Session, op string, payload any) protocol.Response {
	t.Helper()
	req := protocol.Request{Op: op}
	if payload != nil {
		req.Payload = mustRaw(t, payload)
	}
	return d.Dispatch(context.Background(), sess, req)
}

func TestLoginPatientCaseInsensitive(t *testing.T) {
	d, repo := newTestDispatcher(t)
	seedClinic(t, repo)

	variants := []protocol.Credentials{
		{LastName: "Ivanov", FirstName: "Ivan", MiddleName: "Ivanovich"},
		{LastName: "IVANOV", FirstName: "IVAN", MiddleName: "IVANOVICH"},
		{LastName: "ivanov", FirstName: "ivan", MiddleName: "ivanovich"},
		{LastName: "iVanOv", FirstName: "IvAn", MiddleName: "ivanoVICH"},
	}

	for _, creds := range variants {
		sess := NewSession()
		resp := dispatch(t, d, sess, protocol.OpLoginPatient, creds)
		if !resp.OK {
			t.Errorf("login %+v failed: %s", creds, resp.Message)
			continue
		}
		if sess.Role() != RolePatient {
			t.Errorf("session role = %v, want RolePatient", sess.Role())
		}
		if sess.Patient() == nil || sess.Patient().PolicyNumber != "POL1234567890" {
			t.Errorf("session patient = %+v, want the stored record", sess.Patient())
		}
	}
}

func TestLoginUnknownNameFails(t *testing.T) {
	d, repo := newTestDispatcher(t)
	seedClinic(t, repo)

	sess := NewSession()
	resp := dispatch(t, d, sess, protocol.OpLoginPatient, protocol.Credentials{
		LastName: "Nobody", FirstName: "At", MiddleName: "All",
	})
	if resp.OK {
		t.Error("login with unknown name succeeded")
	}
	if sess.IsAuthenticated() {
		t.Error("failed login left the session authenticated")
	}
}

func TestLoginReplacesPreviousIdentity(t *testing.T) {
	d, repo := newTestDispatcher(t)
	seedClinic(t, repo)

	sess := NewSession()

	resp := dispatch(t, d, sess, protocol.OpLoginPatient, protocol.Credentials{
		LastName: "Ivanov", FirstName: "Ivan", MiddleName: "Ivanovich",
	})
	if !resp.OK {
		t.Fatalf("patient login failed: %s", resp.Message)
	}

	resp = dispatch(t, d, sess, protocol.OpLoginDoctor, protocol.Credentials{
		LastName: "Sidorov", FirstName: "Petr", MiddleName: "Alekseevich",
	})
	if !resp.OK {
		t.Fatalf("doctor login failed: %s", resp.Message)
	}

	if sess.Role() != RoleDoctor {
		t.Errorf("role after relogin = %v, want RoleDoctor", sess.Role())
	}
	if sess.Patient() != nil {
		t.Error("patient identity survived doctor login")
	}

	resp = dispatch(t, d, sess, protocol.OpLogout, nil)
	if !resp.OK {
		t.Fatalf("logout failed: %s", resp.Message)
	}
	if sess.IsAuthenticated() {
		t.Error("session still authenticated after logout")
	}
}

func TestBookThenQueryRoundTrip(t *testing.T) {
	d, repo := newTestDispatcher(t)
	patientID, doctorID := seedClinic(t, repo)
	sess := NewSession()

	resp := dispatch(t, d, sess, protocol.OpBookAppointment, protocol.BookPayload{
		PatientID: patientID, DoctorID: doctorID, Date: "2025-06-01", Time: "09:00",
	})
	if !resp.OK {
		t.Fatalf("book failed: %s", resp.Message)
	}

	resp = dispatch(t, d, sess, protocol.OpGetAppointments, protocol.DoctorDatePayload{
		DoctorID: doctorID, Date: "2025-06-01",
	})
	if !resp.OK {
		t.Fatalf("get-appointments failed: %s", resp.Message)
	}

	appts, ok := resp.Data.([]registry.Appointment)
	if !ok {
		t.Fatalf("get-appointments data type = %T", resp.Data)
	}
	if len(appts) != 1 || appts[0].Status != registry.StatusScheduled {
		t.Errorf("appointments = %+v, want one Scheduled entry", appts)
	}
}

func TestBookConflictReportedNotFatal(t *testing.T) {
	d, repo := newTestDispatcher(t)
	patientID, doctorID := seedClinic(t, repo)
	sess := NewSession()

	payload := protocol.BookPayload{
		PatientID: patientID, DoctorID: doctorID, Date: "2025-06-01", Time: "10:00",
	}

	if resp := dispatch(t, d, sess, protocol.OpBookAppointment, payload); !resp.OK {
		t.Fatalf("first booking failed: %s", resp.Message)
	}
	if resp := dispatch(t, d, sess, protocol.OpBookAppointment, payload); resp.OK {
		t.Error("double booking of one slot succeeded")
	}
}

func TestFreeSlotsShrinkAfterBooking(t *testing.T) {
	d, repo := newTestDispatcher(t)
	patientID, doctorID := seedClinic(t, repo)
	sess := NewSession()

	query := protocol.DoctorDatePayload{DoctorID: doctorID, Date: "2025-06-01"}

	resp := dispatch(t, d, sess, protocol.OpGetFreeSlots, query)
	if !resp.OK {
		t.Fatalf("get-free-slots failed: %s", resp.Message)
	}
	before := len(resp.Data.([]string))

	dispatch(t, d, sess, protocol.OpBookAppointment, protocol.BookPayload{
		PatientID: patientID, DoctorID: doctorID, Date: "2025-06-01", Time: "08:00",
	})

	resp = dispatch(t, d, sess, protocol.OpGetFreeSlots, query)
	if !resp.OK {
		t.Fatalf("get-free-slots failed: %s", resp.Message)
	}
	after := len(resp.Data.([]string))

	if after != before-1 {
		t.Errorf("free slots after booking = %d, want %d", after, before-1)
	}
}

func TestUnknownOperation(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := d.Dispatch(context.Background(), NewSession(), protocol.Request{Op: "teleport-patient"})
	if resp.OK {
		t.Error("unknown operation reported success")
	}
}

// Every operation must yield a defined outcome for a valid and an invalid
// payload, without ever dropping the connection.
func TestDispatchCompleteness(t *testing.T) {
	d, repo := newTestDispatcher(t)
	patientID, doctorID := seedClinic(t, repo)

	valid := map[string]any{
		protocol.OpLoginPatient:      protocol.Credentials{LastName: "Ivanov", FirstName: "Ivan", MiddleName: "Ivanovich"},
		protocol.OpLoginDoctor:       protocol.Credentials{LastName: "Sidorov", FirstName: "Petr", MiddleName: "Alekseevich"},
		protocol.OpLogout:            nil,
		protocol.OpAddPatient:        protocol.PatientPayload{LastName: "Petrova", FirstName: "Anna", PolicyNumber: "POL0987654321"},
		protocol.OpGetAllPatients:    nil,
		protocol.OpUpdatePatient:     protocol.PatientPayload{ID: patientID, LastName: "Ivanov", FirstName: "Ivan", PolicyNumber: "POL1234567890"},
		protocol.OpDeletePatient:     nil, // exercised separately to keep the seed intact
		protocol.OpSearchPatients:    protocol.SearchPayload{Query: "Ivan"},
		protocol.OpGetPatientDetails: protocol.IDPayload{ID: patientID},
		protocol.OpAddDoctor:         protocol.DoctorPayload{LastName: "Kuznetsova", FirstName: "Elena", Specialty: "Surgeon"},
		protocol.OpGetAllDoctors:     nil,
		protocol.OpGetDoctorDetails:  protocol.IDPayload{ID: doctorID},
		protocol.OpBookAppointment:   protocol.BookPayload{PatientID: patientID, DoctorID: doctorID, Date: "2025-07-01", Time: "09:00"},
		protocol.OpCancelAppointment: protocol.IDPayload{ID: 1}, // booked just above
		protocol.OpGetAppointments:   protocol.DoctorDatePayload{DoctorID: doctorID, Date: "2025-07-01"},
		protocol.OpGetSchedule:       protocol.DatePayload{Date: "2025-07-01"},
		protocol.OpGetFreeSlots:      protocol.DoctorDatePayload{DoctorID: doctorID, Date: "2025-07-01"},
		protocol.OpGetPatientHistory: protocol.IDPayload{ID: patientID},
	}

	// Ops in a deterministic order so book happens before cancel.
	order := []string{
		protocol.OpLoginPatient, protocol.OpLoginDoctor, protocol.OpLogout,
		protocol.OpAddPatient, protocol.OpGetAllPatients, protocol.OpUpdatePatient,
		protocol.OpSearchPatients, protocol.OpGetPatientDetails,
		protocol.OpAddDoctor, protocol.OpGetAllDoctors, protocol.OpGetDoctorDetails,
		protocol.OpBookAppointment, protocol.OpCancelAppointment,
		protocol.OpGetAppointments, protocol.OpGetSchedule,
		protocol.OpGetFreeSlots, protocol.OpGetPatientHistory,
	}

	sess := NewSession()
	for _, op := range order {
		resp := dispatch(t, d, sess, op, valid[op])
		if !resp.OK {
			t.Errorf("op %s with valid payload failed: %s", op, resp.Message)
		}
	}

	// Invalid payloads: a JSON number fits none of the payload structs.
	withPayload := []string{
		protocol.OpLoginPatient, protocol.OpLoginDoctor,
		protocol.OpAddPatient, protocol.OpUpdatePatient, protocol.OpDeletePatient,
		protocol.OpSearchPatients, protocol.OpGetPatientDetails,
		protocol.OpAddDoctor, protocol.OpGetDoctorDetails,
		protocol.OpBookAppointment, protocol.OpCancelAppointment,
		protocol.OpGetAppointments, protocol.OpGetSchedule,
		protocol.OpGetFreeSlots, protocol.OpGetPatientHistory,
	}
	for _, op := range withPayload {
		resp := d.Dispatch(context.Background(), sess, protocol.Request{
			Op:      op,
			Payload: json.RawMessage(`42`),
		})
		if resp.OK {
			t.Errorf("op %s with invalid payload succeeded", op)
		}
	}
}

func TestDeletePatientRemovesHistory(t *testing.T) {
	d, repo := newTestDispatcher(t)
	patientID, doctorID := seedClinic(t, repo)
	sess := NewSession()

	dispatch(t, d, sess, protocol.OpBookAppointment, protocol.BookPayload{
		PatientID: patientID, DoctorID: doctorID, Date: "2025-06-01", Time: "09:00",
	})

	resp := dispatch(t, d, sess, protocol.OpDeletePatient, protocol.IDPayload{ID: patientID})
	if !resp.OK {
		t.Fatalf("delete-patient failed: %s", resp.Message)
	}

	resp = dispatch(t, d, sess, protocol.OpGetPatientHistory, protocol.IDPayload{ID: patientID})
	if !resp.OK {
		t.Fatalf("get-patient-history failed: %s", resp.Message)
	}
	if appts, _ := resp.Data.([]registry.Appointment); len(appts) != 0 {
		t.Errorf("history after delete = %+v, want empty", appts)
	}
}
