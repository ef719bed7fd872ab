package registry

import (
	"testing"
	"time"
)

func TestGridTimes(t *testing.T) {
	times := DefaultGrid.Times()

	if len(times) != 20 {
		t.Fatalf("len(Times()) = %d, want 20", len(times))
	}
	if times[0] != "08:00" {
		t.Errorf("first slot = %q, want 08:00", times[0])
	}
	if times[len(times)-1] != "17:30" {
		t.Errorf("last slot = %q, want 17:30", times[len(times)-1])
	}
}

func TestGridFreeTimes(t *testing.T) {
	appts := []Appointment{
		{Time: "08:00", Status: StatusScheduled},
		{Time: "09:30", Status: StatusCancelled}, // still blocks the slot
	}

	free := DefaultGrid.FreeTimes(appts)

	if len(free) != 18 {
		t.Fatalf("len(FreeTimes()) = %d, want 18", len(free))
	}
	for _, slot := range free {
		if slot == "08:00" || slot == "09:30" {
			t.Errorf("occupied slot %q listed as free", slot)
		}
	}
}

func TestGridFreeTimesEmptyDay(t *testing.T) {
	free := DefaultGrid.FreeTimes(nil)
	if len(free) != len(DefaultGrid.Times()) {
		t.Errorf("free slots on empty day = %d, want %d", len(free), len(DefaultGrid.Times()))
	}
}

func TestCustomGrid(t *testing.T) {
	grid := SlotGrid{WorkStart: "10:00", WorkEnd: "12:00", Step: time.Hour}

	times := grid.Times()
	want := []string{"10:00", "11:00"}
	if len(times) != len(want) {
		t.Fatalf("Times() = %v, want %v", times, want)
	}
	for i := range want {
		if times[i] != want[i] {
			t.Errorf("Times()[%d] = %q, want %q", i, times[i], want[i])
		}
	}
}
