package fetch

type pendingKind int8

const (
	pendingNone pendingKind = iota
	pendingBatchReject
	pendingRecordRelease
)

// pendingError is the deferred error outbox. It holds at most one error,
// reported on the next call and cleared as it is read.
type pendingError struct {
	kind pendingKind
	err  error

	// batch range to reject, for pendingBatchReject
	base, last int64
	// offset to release, for pendingRecordRelease
	offset int64
}

func (p *pendingError) deferBatch(err error, base, last int64) {
	*p = pendingError{kind: pendingBatchReject, err: err, base: base, last: last}
}

func (p *pendingError) deferRecord(err error, offset int64) {
	*p = pendingError{kind: pendingRecordRelease, err: err, offset: offset}
}

func (p *pendingError) isSet() bool { return p.kind != pendingNone }

// take returns the pending error and clears the slot.
func (p *pendingError) take() pendingError {
	out := *p
	*p = pendingError{}
	return out
}

func (p *pendingError) clear() { *p = pendingError{} }
