package domain

import "testing"

func tod(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q) error: %v", s, err)
	}
	return v
}

func todPtr(t *testing.T, s string) *TimeOfDay {
	t.Helper()
	v := tod(t, s)
	return &v
}

func assertSlots(t *testing.T, got []TimeOfDay, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len(slots) = %d, want %d (%v)", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].String() != w {
			t.Fatalf("slots[%d] = %s, want %s", i, got[i], w)
		}
	}
}

func TestGenerateSlots_HourlyWithLunchBreak(t *testing.T) {
	got := GenerateSlots(tod(t, "09:00"), tod(t, "17:00"), todPtr(t, "12:00"), todPtr(t, "13:00"), 60)
	assertSlots(t, got, []string{"09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00"})
}

func TestGenerateSlots_HalfHourNoBreak(t *testing.T) {
	got := GenerateSlots(tod(t, "09:00"), tod(t, "17:00"), nil, nil, 30)
	if len(got) != 16 {
		t.Fatalf("len(slots) = %d, want 16", len(got))
	}
	if got[0].String() != "09:00" || got[15].String() != "16:30" {
		t.Fatalf("slots = %v, want 09:00..16:30", got)
	}
}

func TestGenerateSlots_BreakJumpNeverEmitsMidBreakSlot(t *testing.T) {
	// Break not aligned to the slot grid: the cursor jumps to break end
	// instead of stepping through it.
	got := GenerateSlots(tod(t, "09:00"), tod(t, "13:00"), todPtr(t, "10:30"), todPtr(t, "11:30"), 60)
	assertSlots(t, got, []string{"09:00", "11:30"})
}

func TestGenerateSlots_SlotOverlappingBreakStartDropped(t *testing.T) {
	// 11:00 slot would run into the 11:30 break and must not appear.
	got := GenerateSlots(tod(t, "09:00"), tod(t, "14:00"), todPtr(t, "11:30"), todPtr(t, "12:00"), 60)
	assertSlots(t, got, []string{"09:00", "10:00", "12:00", "13:00"})
}

func TestGenerateSlots_PartialFinalSlotDropped(t *testing.T) {
	got := GenerateSlots(tod(t, "09:00"), tod(t, "10:30"), nil, nil, 60)
	assertSlots(t, got, []string{"09:00"})
}

func TestGenerateSlots_NonPositiveDuration(t *testing.T) {
	if got := GenerateSlots(tod(t, "09:00"), tod(t, "17:00"), nil, nil, 0); got != nil {
		t.Fatalf("slots = %v, want nil", got)
	}
	if got := GenerateSlots(tod(t, "09:00"), tod(t, "17:00"), nil, nil, -15); got != nil {
		t.Fatalf("slots = %v, want nil", got)
	}
}

func TestGenerateSlots_WindowShorterThanSlot(t *testing.T) {
	if got := GenerateSlots(tod(t, "09:00"), tod(t, "09:30"), nil, nil, 60); len(got) != 0 {
		t.Fatalf("slots = %v, want empty", got)
	}
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	first := GenerateSlots(tod(t, "08:00"), tod(t, "18:00"), todPtr(t, "12:00"), todPtr(t, "13:00"), 30)
	second := GenerateSlots(tod(t, "08:00"), tod(t, "18:00"), todPtr(t, "12:00"), todPtr(t, "13:00"), 30)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slots[%d] differ: %s vs %s", i, first[i], second[i])
		}
	}
}
