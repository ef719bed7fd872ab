package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/marinaerokhina/PoliclinicRegistry/internal/protocol"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/registry"
)

// Dispatcher maps one request to one outcome. It is a total function over
// the operation set: bad payloads and unknown codes produce failure
// responses, never a dropped connection.
type Dispatcher struct {
	store   registry.Repository
	booking *registry.Coordinator
	grid    registry.SlotGrid
}

func NewDispatcher(store registry.Repository, booking *registry.Coordinator, grid registry.SlotGrid) *Dispatcher {
	return &Dispatcher{
		store:   store,
		booking: booking,
		grid:    grid,
	}
}

func ok(message string, data any) protocol.Response {
	return protocol.Response{OK: true, Message: message, Data: data}
}

func fail(message string) protocol.Response {
	return protocol.Response{OK: false, Message: message}
}

func malformed(op string) protocol.Response {
	return fail("malformed payload for operation " + op)
}

func decode(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func validDate(s string) bool {
	_, err := time.Parse(registry.DateLayout, s)
	return err == nil
}

func validTime(s string) bool {
	_, err := time.Parse(registry.TimeLayout, s)
	return err == nil
}

// Dispatch resolves a single request against the schedule store. Booking
// and cancellation go through the coordinator; everything else reads or
// writes the store directly. Successful logins mutate the session owned by
// the calling worker.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	switch req.Op {
	case protocol.OpLoginPatient:
		return d.loginPatient(ctx, sess, req)
	case protocol.OpLoginDoctor:
		return d.loginDoctor(ctx, sess, req)
	case protocol.OpLogout:
		sess.Logout()
		return ok("logged out", nil)
	case protocol.OpAddPatient:
		return d.addPatient(ctx, req)
	case protocol.OpGetAllPatients:
		return d.listPatients(ctx)
	case protocol.OpUpdatePatient:
		return d.updatePatient(ctx, req)
	case protocol.OpDeletePatient:
		return d.deletePatient(ctx, req)
	case protocol.OpSearchPatients:
		return d.searchPatients(ctx, req)
	case protocol.OpGetPatientDetails:
		return d.patientDetails(ctx, req)
	case protocol.OpAddDoctor:
		return d.addDoctor(ctx, req)
	case protocol.OpGetAllDoctors:
		return d.listDoctors(ctx)
	case protocol.OpGetDoctorDetails:
		return d.doctorDetails(ctx, req)
	case protocol.OpBookAppointment:
		return d.bookAppointment(ctx, req)
	case protocol.OpCancelAppointment:
		return d.cancelAppointment(ctx, req)
	case protocol.OpGetAppointments:
		return d.appointmentsByDoctorDate(ctx, req)
	case protocol.OpGetSchedule:
		return d.scheduleByDate(ctx, req)
	case protocol.OpGetFreeSlots:
		return d.freeSlots(ctx, req)
	case protocol.OpGetPatientHistory:
		return d.patientHistory(ctx, req)
	default:
		return fail("unknown operation " + req.Op)
	}
}

func (d *Dispatcher) loginPatient(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	var creds protocol.Credentials
	if !decode(req.Payload, &creds) || creds.LastName == "" || creds.FirstName == "" {
		return malformed(req.Op)
	}

	p, err := d.store.FindPatientByName(ctx, creds.LastName, creds.FirstName, creds.MiddleName)
	if err != nil {
		if errors.Is(err, registry.ErrPatientNotFound) {
			return fail("no patient with this name")
		}
		return d.storeFailure(req.Op, err)
	}

	sess.AuthenticateAsPatient(p)
	return ok("patient logged in", p)
}

func (d *Dispatcher) loginDoctor(ctx context.Context, sess *Session, req protocol.Request) protocol.Response {
	var creds protocol.Credentials
	if !decode(req.Payload, &creds) || creds.LastName == "" || creds.FirstName == "" {
		return malformed(req.Op)
	}

	doc, err := d.store.FindDoctorByName(ctx, creds.LastName, creds.FirstName, creds.MiddleName)
	if err != nil {
		if errors.Is(err, registry.ErrDoctorNotFound) {
			return fail("no doctor with this name")
		}
		return d.storeFailure(req.Op, err)
	}

	sess.AuthenticateAsDoctor(doc)
	return ok("doctor logged in", doc)
}

func (d *Dispatcher) addPatient(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.PatientPayload
	if !decode(req.Payload, &p) || p.LastName == "" || p.FirstName == "" || p.PolicyNumber == "" {
		return malformed(req.Op)
	}
	if p.DateOfBirth != "" && !validDate(p.DateOfBirth) {
		return malformed(req.Op)
	}

	created, err := d.store.CreatePatient(ctx, registry.Patient{
		LastName:     p.LastName,
		FirstName:    p.FirstName,
		MiddleName:   p.MiddleName,
		DateOfBirth:  p.DateOfBirth,
		Address:      p.Address,
		Phone:        p.Phone,
		PolicyNumber: p.PolicyNumber,
	})
	if err != nil {
		if errors.Is(err, registry.ErrDuplicatePolicy) {
			return fail("a patient with this policy number already exists")
		}
		return d.storeFailure(req.Op, err)
	}
	return ok("patient added", created)
}

func (d *Dispatcher) listPatients(ctx context.Context) protocol.Response {
	patients, err := d.store.ListPatients(ctx)
	if err != nil {
		return d.storeFailure(protocol.OpGetAllPatients, err)
	}
	return ok("patient list", patients)
}

func (d *Dispatcher) updatePatient(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.PatientPayload
	if !decode(req.Payload, &p) || p.ID <= 0 || p.LastName == "" || p.FirstName == "" || p.PolicyNumber == "" {
		return malformed(req.Op)
	}
	if p.DateOfBirth != "" && !validDate(p.DateOfBirth) {
		return malformed(req.Op)
	}

	err := d.store.UpdatePatient(ctx, registry.Patient{
		ID:           p.ID,
		LastName:     p.LastName,
		FirstName:    p.FirstName,
		MiddleName:   p.MiddleName,
		DateOfBirth:  p.DateOfBirth,
		Address:      p.Address,
		Phone:        p.Phone,
		PolicyNumber: p.PolicyNumber,
	})
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrPatientNotFound):
			return fail("patient not found")
		case errors.Is(err, registry.ErrDuplicatePolicy):
			return fail("a patient with this policy number already exists")
		}
		return d.storeFailure(req.Op, err)
	}
	return ok("patient updated", nil)
}

func (d *Dispatcher) deletePatient(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.IDPayload
	if !decode(req.Payload, &p) || p.ID <= 0 {
		return malformed(req.Op)
	}

	if err := d.store.DeletePatient(ctx, p.ID); err != nil {
		if errors.Is(err, registry.ErrPatientNotFound) {
			return fail("patient not found")
		}
		return d.storeFailure(req.Op, err)
	}
	return ok("patient deleted", nil)
}

func (d *Dispatcher) searchPatients(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.SearchPayload
	if !decode(req.Payload, &p) {
		return malformed(req.Op)
	}

	patients, err := d.store.SearchPatients(ctx, p.Query)
	if err != nil {
		return d.storeFailure(req.Op, err)
	}
	return ok("search results", patients)
}

func (d *Dispatcher) patientDetails(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.IDPayload
	if !decode(req.Payload, &p) || p.ID <= 0 {
		return malformed(req.Op)
	}

	patient, err := d.store.GetPatientByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, registry.ErrPatientNotFound) {
			return fail("patient not found")
		}
		return d.storeFailure(req.Op, err)
	}
	return ok("patient details", patient)
}

func (d *Dispatcher) addDoctor(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.DoctorPayload
	if !decode(req.Payload, &p) || p.LastName == "" || p.FirstName == "" || p.Specialty == "" {
		return malformed(req.Op)
	}

	created, err := d.store.CreateDoctor(ctx, registry.Doctor{
		LastName:   p.LastName,
		FirstName:  p.FirstName,
		MiddleName: p.MiddleName,
		Specialty:  p.Specialty,
		Office:     p.Office,
	})
	if err != nil {
		return d.storeFailure(req.Op, err)
	}
	return ok("doctor added", created)
}

func (d *Dispatcher) listDoctors(ctx context.Context) protocol.Response {
	doctors, err := d.store.ListDoctors(ctx)
	if err != nil {
		return d.storeFailure(protocol.OpGetAllDoctors, err)
	}
	return ok("doctor list", doctors)
}

func (d *Dispatcher) doctorDetails(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.IDPayload
	if !decode(req.Payload, &p) || p.ID <= 0 {
		return malformed(req.Op)
	}

	doc, err := d.store.GetDoctorByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, registry.ErrDoctorNotFound) {
			return fail("doctor not found")
		}
		return d.storeFailure(req.Op, err)
	}
	return ok("doctor details", doc)
}

func (d *Dispatcher) bookAppointment(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.BookPayload
	if !decode(req.Payload, &p) || p.PatientID <= 0 || p.DoctorID <= 0 ||
		!validDate(p.Date) || !validTime(p.Time) {
		return malformed(req.Op)
	}

	appt, err := d.booking.Book(ctx, p.DoctorID, p.Date, p.Time, p.PatientID)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrSlotTaken):
			return fail("the selected time is already taken")
		case errors.Is(err, registry.ErrPatientNotFound):
			return fail("patient not found")
		case errors.Is(err, registry.ErrDoctorNotFound):
			return fail("doctor not found")
		}
		return d.storeFailure(req.Op, err)
	}
	return ok("appointment booked", appt)
}

func (d *Dispatcher) cancelAppointment(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.IDPayload
	if !decode(req.Payload, &p) || p.ID <= 0 {
		return malformed(req.Op)
	}

	if err := d.booking.Cancel(ctx, p.ID); err != nil {
		if errors.Is(err, registry.ErrAppointmentNotFound) {
			return fail("appointment not found")
		}
		return d.storeFailure(req.Op, err)
	}
	return ok("appointment cancelled", nil)
}

func (d *Dispatcher) appointmentsByDoctorDate(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.DoctorDatePayload
	if !decode(req.Payload, &p) || p.DoctorID <= 0 || !validDate(p.Date) {
		return malformed(req.Op)
	}

	appts, err := d.store.ListAppointmentsByDoctorDate(ctx, p.DoctorID, p.Date)
	if err != nil {
		return d.storeFailure(req.Op, err)
	}
	return ok("doctor appointments", appts)
}

func (d *Dispatcher) scheduleByDate(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.DatePayload
	if !decode(req.Payload, &p) || !validDate(p.Date) {
		return malformed(req.Op)
	}

	appts, err := d.store.ListAppointmentsByDate(ctx, p.Date)
	if err != nil {
		return d.storeFailure(req.Op, err)
	}
	return ok("schedule", appts)
}

func (d *Dispatcher) freeSlots(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.DoctorDatePayload
	if !decode(req.Payload, &p) || p.DoctorID <= 0 || !validDate(p.Date) {
		return malformed(req.Op)
	}

	appts, err := d.store.ListAppointmentsByDoctorDate(ctx, p.DoctorID, p.Date)
	if err != nil {
		return d.storeFailure(req.Op, err)
	}
	return ok("free slots", d.grid.FreeTimes(appts))
}

func (d *Dispatcher) patientHistory(ctx context.Context, req protocol.Request) protocol.Response {
	var p protocol.IDPayload
	if !decode(req.Payload, &p) || p.ID <= 0 {
		return malformed(req.Op)
	}

	appts, err := d.store.ListAppointmentsByPatient(ctx, p.ID)
	if err != nil {
		return d.storeFailure(req.Op, err)
	}
	return ok("patient history", appts)
}

// storeFailure reports a storage-level fault to the caller without tearing
// down the connection.
func (d *Dispatcher) storeFailure(op string, err error) protocol.Response {
	log.Printf("op=%s store error: %v", op, err)
	return fail("internal server error")
}
