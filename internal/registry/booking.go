package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/marinaerokhina/PoliclinicRegistry/internal/lock"
)

// Coordinator serializes booking decisions per slot key so that the
// check-then-insert sequence cannot race for the same (doctor, date, time).
// Bookings for different keys proceed concurrently.
type Coordinator struct {
	repo   Repository
	locker lock.SlotLocker
}

func NewCoordinator(repo Repository, locker lock.SlotLocker) *Coordinator {
	return &Coordinator{
		repo:   repo,
		locker: locker,
	}
}

// Book reserves the slot for the patient. Under any interleaving of
// concurrent Book calls for the same key, at most one succeeds; the rest
// fail with ErrSlotTaken.
func (c *Coordinator) Book(ctx context.Context, doctorID int64, date, timeOfDay string, patientID int64) (*Appointment, error) {
	if _, err := c.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := c.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	var created *Appointment

	key := SlotKey(doctorID, date, timeOfDay)
	err := c.locker.WithSlotLock(ctx, key, func(lockCtx context.Context) error {
		// Inside the critical section re-check that the slot is still free.
		// A cancelled appointment blocks the slot too.
		existing, err := c.repo.FindAppointment(lockCtx, doctorID, date, timeOfDay)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := c.repo.CreateAppointment(lockCtx, Appointment{
			PatientID: patientID,
			DoctorID:  doctorID,
			Date:      date,
			Time:      timeOfDay,
			Status:    StatusScheduled,
		})
		if err != nil {
			// ErrSlotTaken may still surface here from the store's unique
			// constraint when another process beat us to the insert.
			return err
		}

		created = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Cancel marks the appointment Cancelled. The slot stays blocked for
// rebooking; cancelling an already-cancelled appointment is a no-op success.
func (c *Coordinator) Cancel(ctx context.Context, appointmentID int64) error {
	if err := c.repo.UpdateAppointmentStatus(ctx, appointmentID, StatusCancelled); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		return fmt.Errorf("cancel appointment: %w", err)
	}
	return nil
}
