package main

import (
	"flag"

	"github.com/downfa11-org/sharefetch/pkg/bench"
	"github.com/downfa11-org/sharefetch/util"
)

func main() {
	topicName := flag.String("topic", "bench-topic", "topic name for benchmark")
	partitions := flag.Int("partitions", 12, "number of partitions")
	consumers := flag.Int("consumers", 4, "number of consumers")
	records := flag.Int("records", 10000, "records per partition")
	batchSize := flag.Int("batch-size", 100, "records per batch")
	valueSize := flag.Int("value-size", 100, "value size in bytes")
	gapEvery := flag.Int("gap-every", 0, "drop every n-th offset to simulate compaction (0 disables)")
	maxPoll := flag.Int("max-poll-records", 500, "maximum records per poll")
	compression := flag.String("compression", "none", "none, gzip, snappy, lz4 or zstd")
	flag.Parse()

	codec, err := util.ParseCodec(*compression)
	if err != nil {
		util.Fatal("❌ %v", err)
	}

	runner := bench.NewBenchmarkRunner(*topicName, *partitions, *consumers, *records, *batchSize, codec)
	runner.ValueSize = *valueSize
	runner.GapEvery = *gapEvery
	runner.MaxPollRecords = *maxPoll
	if _, err := runner.Run(); err != nil {
		util.Fatal("❌ Benchmark failed: %v", err)
	}
}
