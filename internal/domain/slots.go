package domain

// GenerateSlots produces the ordered candidate slot start times for one
// working window, excluding any slot that would overlap the break.
//
// The walk advances in steps of durationMinutes from start. A cursor that
// lands inside [breakStart, breakEnd) jumps straight to breakEnd, so no slot
// ever starts mid-break. A slot is emitted only when its end fits before
// endTime and it does not straddle the break; a final partial slot is
// dropped. Pure function of its inputs.
func GenerateSlots(start, end TimeOfDay, breakStart, breakEnd *TimeOfDay, durationMinutes int) []TimeOfDay {
	if durationMinutes <= 0 {
		return nil
	}
	hasBreak := breakStart != nil && breakEnd != nil

	var slots []TimeOfDay
	step := TimeOfDay(durationMinutes)

	for cur := start; cur < end; cur += step {
		if hasBreak && cur >= *breakStart && cur < *breakEnd {
			cur = *breakEnd - step
			continue
		}

		slotEnd := cur + step
		if slotEnd > end {
			break
		}
		if hasBreak && slotEnd > *breakStart && cur < *breakEnd {
			continue
		}
		slots = append(slots, cur)
	}

	return slots
}
