package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/marinaerokhina/PoliclinicRegistry/internal/db"
	"github.com/marinaerokhina/PoliclinicRegistry/internal/registry"
)

// Demo identities mirror the clinic's stock test data; seeding is
// idempotent, keyed on policy number for patients and full name for
// doctors.
var demoPatients = []registry.Patient{
	{LastName: "Ivanov", FirstName: "Ivan", MiddleName: "Ivanovich", DateOfBirth: "1990-05-15", Address: "Pushkin st. 1", Phone: "+79001234567", PolicyNumber: "POL1234567890"},
	{LastName: "Petrova", FirstName: "Anna", MiddleName: "Sergeevna", DateOfBirth: "1985-11-20", Address: "Lenin ave. 10", Phone: "+79012345678", PolicyNumber: "POL0987654321"},
	{LastName: "Sidorova", FirstName: "Maria", MiddleName: "Ivanovna", DateOfBirth: "1992-03-01", Address: "Tsvetochnaya st. 5", Phone: "+79023456789", PolicyNumber: "POL9876543210"},
}

var demoDoctors = []registry.Doctor{
	{LastName: "Sidorov", FirstName: "Petr", MiddleName: "Alekseevich", Specialty: "Therapist", Office: "101"},
	{LastName: "Kuznetsova", FirstName: "Elena", MiddleName: "Igorevna", Specialty: "Surgeon", Office: "205"},
	{LastName: "Smirnov", FirstName: "Dmitry", MiddleName: "Viktorovich", Specialty: "Ophthalmologist", Office: "303"},
	{LastName: "Volkova", FirstName: "Olga", MiddleName: "Nikolaevna", Specialty: "Ultrasound", Office: "401"},
}

// Demo appointments pair the first patients with the first doctors on the
// next working day; the slot unique constraint makes reruns a no-op.
var demoAppointments = []struct {
	patientPolicy string
	doctorLast    string
	daysAhead     int
	timeOfDay     string
}{
	{"POL1234567890", "Sidorov", 1, "09:00"},
	{"POL0987654321", "Sidorov", 1, "10:30"},
	{"POL9876543210", "Kuznetsova", 2, "14:00"},
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	fakePatients := flag.Int("fake-patients", 0, "number of extra random patients to generate")
	flag.Parse()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(dsn); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	repo := registry.NewPgRepository(pool)

	if err := seedDemo(context.Background(), repo); err != nil {
		log.Fatalf("seed demo data: %v", err)
	}
	if *fakePatients > 0 {
		if err := seedFakePatients(context.Background(), repo, *fakePatients); err != nil {
			log.Fatalf("seed fake patients: %v", err)
		}
	}

	log.Println("seed complete")
}

func seedDemo(ctx context.Context, repo *registry.PgRepository) error {
	for _, p := range demoPatients {
		_, err := repo.GetPatientByPolicy(ctx, p.PolicyNumber)
		if err == nil {
			continue
		}
		if !errors.Is(err, registry.ErrPatientNotFound) {
			return err
		}
		if _, err := repo.CreatePatient(ctx, p); err != nil {
			return err
		}
		log.Printf("patient seeded: %s %s", p.LastName, p.FirstName)
	}

	for _, d := range demoDoctors {
		_, err := repo.FindDoctorByName(ctx, d.LastName, d.FirstName, d.MiddleName)
		if err == nil {
			continue
		}
		if !errors.Is(err, registry.ErrDoctorNotFound) {
			return err
		}
		if _, err := repo.CreateDoctor(ctx, d); err != nil {
			return err
		}
		log.Printf("doctor seeded: %s %s (%s)", d.LastName, d.FirstName, d.Specialty)
	}

	for _, a := range demoAppointments {
		p, err := repo.GetPatientByPolicy(ctx, a.patientPolicy)
		if err != nil {
			return err
		}
		var doc *registry.Doctor
		for _, d := range demoDoctors {
			if d.LastName == a.doctorLast {
				doc, err = repo.FindDoctorByName(ctx, d.LastName, d.FirstName, d.MiddleName)
				if err != nil {
					return err
				}
				break
			}
		}
		if doc == nil {
			continue
		}

		date := time.Now().AddDate(0, 0, a.daysAhead).Format(registry.DateLayout)
		_, err = repo.CreateAppointment(ctx, registry.Appointment{
			PatientID: p.ID,
			DoctorID:  doc.ID,
			Date:      date,
			Time:      a.timeOfDay,
			Status:    registry.StatusScheduled,
		})
		if err != nil {
			if errors.Is(err, registry.ErrSlotTaken) {
				continue
			}
			return err
		}
		log.Printf("appointment seeded: %s -> %s %s %s", a.patientPolicy, a.doctorLast, date, a.timeOfDay)
	}

	return nil
}

func seedFakePatients(ctx context.Context, repo *registry.PgRepository, count int) error {
	log.Printf("seeding %d fake patients", count)

	gofakeit.Seed(time.Now().UnixNano())

	for i := 0; i < count; i++ {
		p := registry.Patient{
			LastName:     gofakeit.LastName(),
			FirstName:    gofakeit.FirstName(),
			MiddleName:   gofakeit.FirstName(),
			DateOfBirth:  gofakeit.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)).Format(registry.DateLayout),
			Address:      gofakeit.Address().Address,
			Phone:        gofakeit.Phone(),
			PolicyNumber: gofakeit.Numerify("POL##########"),
		}

		if _, err := repo.CreatePatient(ctx, p); err != nil {
			if errors.Is(err, registry.ErrDuplicatePolicy) {
				continue
			}
			return err
		}
	}

	log.Println("fake patients seeded")
	return nil
}
