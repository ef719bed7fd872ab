package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemRepository is an in-process Repository with the same observable
// behavior as the Postgres one, including the unique policy number and the
// unique (doctor, date, time) slot constraint. It backs the memory store
// mode and the concurrency tests.
type MemRepository struct {
	mu sync.RWMutex

	patients     map[int64]Patient
	doctors      map[int64]Doctor
	appointments map[int64]Appointment

	nextPatientID     int64
	nextDoctorID      int64
	nextAppointmentID int64
}

func NewMemRepository() *MemRepository {
	return &MemRepository{
		patients:     make(map[int64]Patient),
		doctors:      make(map[int64]Doctor),
		appointments: make(map[int64]Appointment),
	}
}

func equalFold3(a1, a2, a3, b1, b2, b3 string) bool {
	return strings.EqualFold(a1, b1) && strings.EqualFold(a2, b2) && strings.EqualFold(a3, b3)
}

// Patients

func (r *MemRepository) CreatePatient(_ context.Context, p Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.patients {
		if existing.PolicyNumber == p.PolicyNumber {
			return nil, ErrDuplicatePolicy
		}
	}

	r.nextPatientID++
	p.ID = r.nextPatientID
	r.patients[p.ID] = p
	return &p, nil
}

func (r *MemRepository) GetPatientByID(_ context.Context, id int64) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemRepository) GetPatientByPolicy(_ context.Context, policyNumber string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patients {
		if p.PolicyNumber == policyNumber {
			p := p
			return &p, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *MemRepository) ListPatients(_ context.Context) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Patient, 0, len(r.patients))
	for _, p := range r.patients {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (r *MemRepository) UpdatePatient(_ context.Context, p Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[p.ID]; !ok {
		return ErrPatientNotFound
	}
	for id, existing := range r.patients {
		if id != p.ID && existing.PolicyNumber == p.PolicyNumber {
			return ErrDuplicatePolicy
		}
	}
	r.patients[p.ID] = p
	return nil
}

func (r *MemRepository) DeletePatient(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[id]; !ok {
		return ErrPatientNotFound
	}
	delete(r.patients, id)

	// Cascade, as the schema does.
	for apptID, a := range r.appointments {
		if a.PatientID == id {
			delete(r.appointments, apptID)
		}
	}
	return nil
}

func (r *MemRepository) SearchPatients(_ context.Context, query string) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)

	var result []Patient
	for _, p := range r.patients {
		if strings.Contains(strings.ToLower(p.LastName), q) ||
			strings.Contains(strings.ToLower(p.FirstName), q) ||
			strings.Contains(strings.ToLower(p.MiddleName), q) ||
			strings.Contains(strings.ToLower(p.PolicyNumber), q) ||
			strings.Contains(strings.ToLower(p.Address), q) ||
			strings.Contains(strings.ToLower(p.Phone), q) ||
			p.DateOfBirth == query {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (r *MemRepository) FindPatientByName(_ context.Context, lastName, firstName, middleName string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patients {
		if equalFold3(p.LastName, p.FirstName, p.MiddleName, lastName, firstName, middleName) {
			p := p
			return &p, nil
		}
	}
	return nil, ErrPatientNotFound
}

// Doctors

func (r *MemRepository) CreateDoctor(_ context.Context, d Doctor) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextDoctorID++
	d.ID = r.nextDoctorID
	r.doctors[d.ID] = d
	return &d, nil
}

func (r *MemRepository) GetDoctorByID(_ context.Context, id int64) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemRepository) ListDoctors(_ context.Context) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (r *MemRepository) FindDoctorByName(_ context.Context, lastName, firstName, middleName string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.doctors {
		if equalFold3(d.LastName, d.FirstName, d.MiddleName, lastName, firstName, middleName) {
			d := d
			return &d, nil
		}
	}
	return nil, ErrDoctorNotFound
}

// Appointments

func (r *MemRepository) FindAppointment(_ context.Context, doctorID int64, date, timeOfDay string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.Time == timeOfDay {
			a := a
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemRepository) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.appointments {
		if existing.DoctorID == a.DoctorID && existing.Date == a.Date && existing.Time == a.Time {
			return nil, ErrSlotTaken
		}
	}

	r.nextAppointmentID++
	a.ID = r.nextAppointmentID
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *MemRepository) GetAppointmentByID(_ context.Context, id int64) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemRepository) UpdateAppointmentStatus(_ context.Context, id int64, status AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.Status = status
	r.appointments[id] = a
	return nil
}

func (r *MemRepository) ListAppointmentsByDoctorDate(_ context.Context, doctorID int64, date string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date == date {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	return result, nil
}

func (r *MemRepository) ListAppointmentsByDate(_ context.Context, date string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.appointments {
		if a.Date == date {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DoctorID != result[j].DoctorID {
			return result[i].DoctorID < result[j].DoctorID
		}
		return result[i].Time < result[j].Time
	})
	return result, nil
}

func (r *MemRepository) ListAppointmentsByPatient(_ context.Context, patientID int64) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.appointments {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return result[i].Time > result[j].Time
	})
	return result, nil
}

var _ Repository = (*MemRepository)(nil)
