package registry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.LastName,
		&p.FirstName,
		&p.MiddleName,
		&p.DateOfBirth,
		&p.Address,
		&p.Phone,
		&p.PolicyNumber,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.LastName,
		&d.FirstName,
		&d.MiddleName,
		&d.Specialty,
		&d.Office,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.Time,
		&a.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func collectPatients(rows pgx.Rows) ([]Patient, error) {
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Patients

func (r *PgRepository) CreatePatient(ctx context.Context, p Patient) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (last_name, first_name, middle_name, date_of_birth, address, phone, policy_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, last_name, first_name, middle_name, date_of_birth, address, phone, policy_number
	`, p.LastName, p.FirstName, p.MiddleName, p.DateOfBirth, p.Address, p.Phone, p.PolicyNumber)

	created, err := scanPatient(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePolicy
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id int64) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, last_name, first_name, middle_name, date_of_birth, address, phone, policy_number
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetPatientByPolicy(ctx context.Context, policyNumber string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, last_name, first_name, middle_name, date_of_birth, address, phone, policy_number
		FROM patients
		WHERE policy_number = $1
	`, policyNumber)
	return scanPatient(row)
}

func (r *PgRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, last_name, first_name, middle_name, date_of_birth, address, phone, policy_number
		FROM patients
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, err
	}
	return collectPatients(rows)
}

func (r *PgRepository) UpdatePatient(ctx context.Context, p Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET last_name = $2,
		    first_name = $3,
		    middle_name = $4,
		    date_of_birth = $5,
		    address = $6,
		    phone = $7,
		    policy_number = $8
		WHERE id = $1
	`, p.ID, p.LastName, p.FirstName, p.MiddleName, p.DateOfBirth, p.Address, p.Phone, p.PolicyNumber)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePolicy
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PgRepository) DeletePatient(ctx context.Context, id int64) error {
	// Appointments referencing the patient go with it (ON DELETE CASCADE).
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PgRepository) SearchPatients(ctx context.Context, query string) ([]Patient, error) {
	like := "%" + query + "%"

	rows, err := r.pool.Query(ctx, `
		SELECT id, last_name, first_name, middle_name, date_of_birth, address, phone, policy_number
		FROM patients
		WHERE last_name ILIKE $1
		   OR first_name ILIKE $1
		   OR middle_name ILIKE $1
		   OR policy_number ILIKE $1
		   OR address ILIKE $1
		   OR phone ILIKE $1
		   OR date_of_birth = $2
		ORDER BY last_name, first_name
	`, like, exactDateOrEmpty(query))
	if err != nil {
		return nil, err
	}
	return collectPatients(rows)
}

// exactDateOrEmpty feeds the date-of-birth equality arm of the search query
// only when the query itself parses as a calendar date.
func exactDateOrEmpty(query string) string {
	if _, err := time.Parse(DateLayout, query); err != nil {
		return ""
	}
	return query
}

func (r *PgRepository) FindPatientByName(ctx context.Context, lastName, firstName, middleName string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, last_name, first_name, middle_name, date_of_birth, address, phone, policy_number
		FROM patients
		WHERE LOWER(last_name) = LOWER($1)
		  AND LOWER(first_name) = LOWER($2)
		  AND LOWER(middle_name) = LOWER($3)
		LIMIT 1
	`, lastName, firstName, middleName)
	return scanPatient(row)
}

// Doctors

func (r *PgRepository) CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctors (last_name, first_name, middle_name, specialty, office)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, last_name, first_name, middle_name, specialty, office
	`, d.LastName, d.FirstName, d.MiddleName, d.Specialty, d.Office)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id int64) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, last_name, first_name, middle_name, specialty, office
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, last_name, first_name, middle_name, specialty, office
		FROM doctors
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) FindDoctorByName(ctx context.Context, lastName, firstName, middleName string) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, last_name, first_name, middle_name, specialty, office
		FROM doctors
		WHERE LOWER(last_name) = LOWER($1)
		  AND LOWER(first_name) = LOWER($2)
		  AND LOWER(middle_name) = LOWER($3)
		LIMIT 1
	`, lastName, firstName, middleName)
	return scanDoctor(row)
}

// Appointments

func (r *PgRepository) FindAppointment(ctx context.Context, doctorID int64, date, timeOfDay string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, visit_date, visit_time, status
		FROM appointments
		WHERE doctor_id = $1 AND visit_date = $2 AND visit_time = $3
	`, doctorID, date, timeOfDay)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, visit_date, visit_time, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, patient_id, doctor_id, visit_date, visit_time, status
	`, a.PatientID, a.DoctorID, a.Date, a.Time, a.Status)

	created, err := scanAppointment(row)
	if err != nil {
		// The UNIQUE (doctor_id, visit_date, visit_time) constraint is the
		// defense-in-depth behind the coordinator's slot lock.
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, visit_date, visit_time, status
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id int64, status AppointmentStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListAppointmentsByDoctorDate(ctx context.Context, doctorID int64, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, doctor_id, visit_date, visit_time, status
		FROM appointments
		WHERE doctor_id = $1 AND visit_date = $2
		ORDER BY visit_time
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByDate(ctx context.Context, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, doctor_id, visit_date, visit_time, status
		FROM appointments
		WHERE visit_date = $1
		ORDER BY doctor_id, visit_time
	`, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID int64) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, doctor_id, visit_date, visit_time, status
		FROM appointments
		WHERE patient_id = $1
		ORDER BY visit_date DESC, visit_time DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

var _ Repository = (*PgRepository)(nil)
