package server

import "github.com/marinaerokhina/PoliclinicRegistry/internal/registry"

type Role int

const (
	RoleNone Role = iota
	RolePatient
	RoleDoctor
)

func (r Role) String() string {
	switch r {
	case RolePatient:
		return "patient"
	case RoleDoctor:
		return "doctor"
	default:
		return "none"
	}
}

// Session is the identity bound to one live connection. It is owned by a
// single connection worker and never shared, so it needs no locking. At
// most one role is active; a later login replaces the previous identity.
type Session struct {
	role    Role
	patient *registry.Patient
	doctor  *registry.Doctor
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) AuthenticateAsPatient(p *registry.Patient) {
	s.role = RolePatient
	s.patient = p
	s.doctor = nil
}

func (s *Session) AuthenticateAsDoctor(d *registry.Doctor) {
	s.role = RoleDoctor
	s.doctor = d
	s.patient = nil
}

func (s *Session) Logout() {
	s.role = RoleNone
	s.patient = nil
	s.doctor = nil
}

func (s *Session) IsAuthenticated() bool {
	return s.role != RoleNone
}

func (s *Session) Role() Role {
	return s.role
}

func (s *Session) Patient() *registry.Patient {
	return s.patient
}

func (s *Session) Doctor() *registry.Doctor {
	return s.doctor
}
