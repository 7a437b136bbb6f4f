package bench

import (
	"fmt"
	"sync"
	"time"

	"github.com/downfa11-org/sharefetch/util"
	"github.com/google/uuid"
)

type BenchmarkRunner struct {
	Topic               string
	Partitions          int
	NumConsumers        int
	RecordsPerPartition int
	BatchSize           int
	ValueSize           int
	GapEvery            int
	MaxPollRecords      int
	Codec               util.Codec
	CheckCrcs           bool
}

func NewBenchmarkRunner(topicName string, partitions, consumers, records, batchSize int, codec util.Codec) *BenchmarkRunner {
	return &BenchmarkRunner{
		Topic:               topicName,
		Partitions:          partitions,
		NumConsumers:        consumers,
		RecordsPerPartition: records,
		BatchSize:           batchSize,
		ValueSize:           100,
		MaxPollRecords:      500,
		Codec:               codec,
		CheckCrcs:           true,
	}
}

// Run spreads partitions round-robin over the consumers and reconciles them
// concurrently.
func (b *BenchmarkRunner) Run() (ClientStats, error) {
	consumers := max(b.NumConsumers, 1)
	assignments := make([][]int32, consumers)
	for p := 0; p < b.Partitions; p++ {
		assignments[p%consumers] = append(assignments[p%consumers], int32(p))
	}

	topicID := uuid.New()
	start := time.Now()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total ClientStats
		errs  []error
	)
	for cid, parts := range assignments {
		if len(parts) == 0 {
			continue
		}
		wg.Add(1)
		go func(cid int, parts []int32) {
			defer wg.Done()
			client := &BenchClient{
				Topic:          b.Topic,
				TopicID:        topicID,
				NumRecords:     b.RecordsPerPartition,
				BatchSize:      b.BatchSize,
				ValueSize:      b.ValueSize,
				GapEvery:       b.GapEvery,
				MaxPollRecords: b.MaxPollRecords,
				Codec:          b.Codec,
				CheckCrcs:      b.CheckCrcs,
			}
			stats, err := client.RunConsumerPhase(parts)
			mu.Lock()
			defer mu.Unlock()
			total.merge(stats)
			if err != nil {
				errs = append(errs, fmt.Errorf("consumer %d: %w", cid, err))
			}
		}(cid, parts)
	}
	wg.Wait()

	if len(errs) > 0 {
		util.Error("❌ %d consumer(s) failed, first error: %v", len(errs), errs[0])
		return total, fmt.Errorf("%d consumer(s) failed: %w", len(errs), errs[0])
	}

	duration := time.Since(start)
	throughput := float64(total.Records) / duration.Seconds()

	fmt.Printf("\n🧪 BENCHMARK RESULT [reconcile] 🧪\n")
	fmt.Printf("-------------------------------------\n")
	fmt.Printf(" Consumers     : %d\n", consumers)
	fmt.Printf(" Partitions    : %d\n", b.Partitions)
	fmt.Printf(" Compression   : %s\n", b.Codec)
	fmt.Printf(" Polls         : %d\n", total.Polls)
	fmt.Printf(" Records       : %d\n", total.Records)
	fmt.Printf(" Gaps          : %d\n", total.Gaps)
	fmt.Printf(" Duration      : %v\n", duration)
	fmt.Printf(" Throughput    : %.2f rec/sec\n", throughput)
	fmt.Printf("-------------------------------------\n")
	return total, nil
}
