package engine

func isLeader(seats Seats, id string) bool {
	seat, ok := seats.Seat(id)
	return ok && seat.Leader
}

func canReceiveTurn(s State, seats Seats, id string) bool {
	seat, ok := seats.Seat(id)
	if !ok || seat.Leader || !seat.Present {
		return false
	}
	return !s.Completed[id]
}

// allPresentDone reports whether every present player has completed the round.
func allPresentDone(s State, seats Seats) bool {
	for _, seat := range seats.Seats() {
		if seat.Leader || !seat.Present {
			continue
		}
		if !s.Completed[seat.ID] {
			return false
		}
	}
	return true
}
