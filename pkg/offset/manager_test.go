package offset_test

import (
	"sync"
	"testing"

	"github.com/downfa11-org/sharefetch/pkg/offset"
	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/google/uuid"
)

func TestAcknowledgementBatches(t *testing.T) {
	acks := offset.NewAcknowledgements()
	for _, off := range []int64{10, 11, 12} {
		acks.Add(off, types.AckAccept)
	}
	acks.Add(13, types.AckGap)
	acks.Add(14, types.AckAccept)
	acks.Add(20, types.AckReject)
	acks.Add(21, types.AckReject)
	acks.Add(30, types.AckRelease)

	batches := acks.Batches()
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d: %v", len(batches), batches)
	}

	first := batches[0]
	if first.FirstOffset != 10 || first.LastOffset != 14 {
		t.Fatalf("unexpected first range %d-%d", first.FirstOffset, first.LastOffset)
	}
	want := []types.AcknowledgeType{types.AckAccept, types.AckAccept, types.AckAccept, types.AckGap, types.AckAccept}
	if len(first.Types) != len(want) {
		t.Fatalf("expected %d types, got %v", len(want), first.Types)
	}
	for i := range want {
		if first.Types[i] != want[i] {
			t.Fatalf("type[%d] = %s; want %s", i, first.Types[i], want[i])
		}
	}
	if first.Types[3] != 0 {
		t.Fatalf("gap must be encoded as 0")
	}

	if got := batches[1]; got.FirstOffset != 20 || got.LastOffset != 21 || len(got.Types) != 1 || got.Types[0] != types.AckReject {
		t.Fatalf("expected uniform reject batch, got %v", got)
	}
	if got := batches[2]; got.FirstOffset != 30 || got.LastOffset != 30 || got.Types[0] != types.AckRelease {
		t.Fatalf("unexpected release batch %v", got)
	}
}

func TestAcknowledgementsLaterTypeWins(t *testing.T) {
	acks := offset.NewAcknowledgements()
	acks.Add(5, types.AckAccept)
	acks.Add(5, types.AckRelease)

	if acks.Size() != 1 {
		t.Fatalf("expected 1 acknowledgement, got %d", acks.Size())
	}
	if typ, _ := acks.Get(5); typ != types.AckRelease {
		t.Fatalf("expected RELEASE, got %s", typ)
	}
	if got := acks.String(); got != "Acknowledgements([5-5 RELEASE])" {
		t.Fatalf("unexpected string %q", got)
	}
}

func TestEmptyAcknowledgements(t *testing.T) {
	acks := offset.NewAcknowledgements()
	if !acks.IsEmpty() || len(acks.Batches()) != 0 {
		t.Fatalf("expected no batches for empty acknowledgements")
	}
}

func TestManager(t *testing.T) {
	m := offset.NewManager()
	tpA := types.TopicIDPartition{TopicID: uuid.New(), Topic: "topicA", Partition: 0}
	tpB := types.TopicIDPartition{TopicID: uuid.New(), Topic: "topicB", Partition: 1}

	if _, ok := m.Take(tpA); ok {
		t.Fatalf("expected nothing pending for %s", tpA)
	}

	first := offset.NewAcknowledgements()
	first.Add(1, types.AckAccept)
	second := offset.NewAcknowledgements()
	second.Add(2, types.AckGap)
	m.Add(tpA, first)
	m.Add(tpA, second)
	m.Add(tpB, second)
	m.Add(tpB, offset.NewAcknowledgements())

	if got := m.Pending(tpA); got != 2 {
		t.Fatalf("expected 2 pending for %s, got %d", tpA, got)
	}

	acks, ok := m.Take(tpA)
	if !ok || acks.Size() != 2 {
		t.Fatalf("expected to take 2 acknowledgements, got %v", acks)
	}
	if m.Pending(tpA) != 0 {
		t.Fatalf("expected %s to be cleared", tpA)
	}

	all := m.TakeAll()
	if len(all) != 1 || all[tpB].Size() != 1 {
		t.Fatalf("unexpected TakeAll result %v", all)
	}
	if len(m.TakeAll()) != 0 {
		t.Fatalf("expected manager to be empty")
	}
}

func TestManagerConcurrentAdd(t *testing.T) {
	m := offset.NewManager()
	tp := types.TopicIDPartition{Topic: "t"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(off int64) {
			defer wg.Done()
			acks := offset.NewAcknowledgements()
			acks.Add(off, types.AckAccept)
			m.Add(tp, acks)
		}(int64(i))
	}
	wg.Wait()

	if got := m.Pending(tp); got != 50 {
		t.Fatalf("expected 50 pending, got %d", got)
	}
}
