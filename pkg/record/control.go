package record

import (
	"fmt"

	"github.com/twmb/franz-go/pkg/kbin"
)

// ControlRecordType is the kind of marker a control record carries in its key.
type ControlRecordType int16

const (
	ControlAbort ControlRecordType = iota
	ControlCommit
	ControlUnknown ControlRecordType = -1
)

const currentControlRecordKeyVersion = 0

func (t ControlRecordType) String() string {
	switch t {
	case ControlAbort:
		return "ABORT"
	case ControlCommit:
		return "COMMIT"
	default:
		return "UNKNOWN"
	}
}

// ParseControlRecordType decodes a control record key: an int16 version
// followed by an int16 type. Keys newer than the known version are still
// parsed; unrecognized types map to ControlUnknown.
func ParseControlRecordType(key []byte) (ControlRecordType, error) {
	if len(key) < 4 {
		return ControlUnknown, fmt.Errorf("invalid control record key: expected at least 4 bytes, got %d", len(key))
	}
	r := kbin.Reader{Src: key}
	version := r.Int16()
	typ := r.Int16()
	if version < 0 {
		return ControlUnknown, fmt.Errorf("invalid negative control record key version %d", version)
	}
	switch ControlRecordType(typ) {
	case ControlAbort, ControlCommit:
		return ControlRecordType(typ), nil
	default:
		return ControlUnknown, nil
	}
}

// controlRecordKey encodes the key of an end transaction marker.
func controlRecordKey(typ ControlRecordType) []byte {
	key := kbin.AppendInt16(nil, currentControlRecordKeyVersion)
	return kbin.AppendInt16(key, int16(typ))
}

// endTxnMarkerValue encodes version 0 of the end transaction marker value.
func endTxnMarkerValue(coordinatorEpoch int32) []byte {
	value := kbin.AppendInt16(nil, 0)
	return kbin.AppendInt32(value, coordinatorEpoch)
}
