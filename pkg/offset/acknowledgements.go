package offset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/downfa11-org/sharefetch/pkg/types"
)

// Acknowledgements maps offsets of one partition to their acknowledge type.
// Adding an offset twice keeps the later type.
type Acknowledgements struct {
	byOffset map[int64]types.AcknowledgeType
}

func NewAcknowledgements() *Acknowledgements {
	return &Acknowledgements{byOffset: make(map[int64]types.AcknowledgeType)}
}

func (a *Acknowledgements) Add(offset int64, typ types.AcknowledgeType) {
	a.byOffset[offset] = typ
}

func (a *Acknowledgements) AddAll(other *Acknowledgements) {
	for off, typ := range other.byOffset {
		a.byOffset[off] = typ
	}
}

// Get returns the type recorded for offset.
func (a *Acknowledgements) Get(offset int64) (types.AcknowledgeType, bool) {
	typ, ok := a.byOffset[offset]
	return typ, ok
}

func (a *Acknowledgements) Size() int     { return len(a.byOffset) }
func (a *Acknowledgements) IsEmpty() bool { return len(a.byOffset) == 0 }

// Offsets returns the acknowledged offsets in ascending order.
func (a *Acknowledgements) Offsets() []int64 {
	offsets := make([]int64, 0, len(a.byOffset))
	for off := range a.byOffset {
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets
}

// AcknowledgementBatch is a contiguous offset range as sent on the wire.
// Types holds one entry per offset, or a single entry when every offset in
// the range has the same type. Gaps are encoded as 0.
type AcknowledgementBatch struct {
	FirstOffset int64
	LastOffset  int64
	Types       []types.AcknowledgeType
}

func (b AcknowledgementBatch) String() string {
	names := make([]string, len(b.Types))
	for i, t := range b.Types {
		names[i] = t.String()
	}
	return fmt.Sprintf("[%d-%d %s]", b.FirstOffset, b.LastOffset, strings.Join(names, ","))
}

// Batches compacts the acknowledgements into contiguous ranges.
func (a *Acknowledgements) Batches() []AcknowledgementBatch {
	var batches []AcknowledgementBatch
	var cur *AcknowledgementBatch
	for _, off := range a.Offsets() {
		if cur != nil && off != cur.LastOffset+1 {
			batches = append(batches, compactTypes(*cur))
			cur = nil
		}
		if cur == nil {
			cur = &AcknowledgementBatch{FirstOffset: off}
		}
		cur.LastOffset = off
		cur.Types = append(cur.Types, a.byOffset[off])
	}
	if cur != nil {
		batches = append(batches, compactTypes(*cur))
	}
	return batches
}

func compactTypes(b AcknowledgementBatch) AcknowledgementBatch {
	for _, t := range b.Types[1:] {
		if t != b.Types[0] {
			return b
		}
	}
	b.Types = b.Types[:1]
	return b
}

func (a *Acknowledgements) String() string {
	var sb strings.Builder
	sb.WriteString("Acknowledgements(")
	for i, b := range a.Batches() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.String())
	}
	sb.WriteString(")")
	return sb.String()
}
