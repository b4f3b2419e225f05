package raffle

// RequestID correlates a randomness request with its eventual response.
type RequestID uint64

// pendingRequest binds an outstanding request to the round that issued it.
type pendingRequest struct {
	id    RequestID
	round uint64
}

// requestLedger tracks the single outstanding randomness request.
// It is not safe for concurrent use; the owning Raffle serialises access.
type requestLedger struct {
	pending *pendingRequest
}

// record stores id as the outstanding request for round, replacing any previous one.
func (l *requestLedger) record(id RequestID, round uint64) {
	l.pending = &pendingRequest{id: id, round: round}
}

// matches reports whether id is the outstanding request without consuming it.
func (l *requestLedger) matches(id RequestID) bool {
	return l.pending != nil && l.pending.id == id
}

// consume clears the outstanding request if it is id. Only the first call for
// a given id returns true.
func (l *requestLedger) consume(id RequestID) bool {
	if !l.matches(id) {
		return false
	}
	l.pending = nil
	return true
}

func (l *requestLedger) current() (pendingRequest, bool) {
	if l.pending == nil {
		return pendingRequest{}, false
	}
	return *l.pending, true
}
