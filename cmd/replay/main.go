package main

import (
	"fmt"
	"io"
	"os"

	"github.com/downfa11-org/sharefetch/pkg/config"
	"github.com/downfa11-org/sharefetch/pkg/consumer"
	"github.com/downfa11-org/sharefetch/pkg/fetch"
	"github.com/downfa11-org/sharefetch/pkg/fixture"
	"github.com/downfa11-org/sharefetch/pkg/metrics"
	"github.com/downfa11-org/sharefetch/pkg/offset"
	"github.com/downfa11-org/sharefetch/pkg/record"
	"github.com/downfa11-org/sharefetch/pkg/serde"
	"github.com/downfa11-org/sharefetch/util"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Println("❌ Failed to load config:", err)
		os.Exit(1)
	}
	if cfg.FixturePath == "" {
		fmt.Println("❌ No fixture given, use -fixture or fixture_path")
		os.Exit(1)
	}
	if cfg.EnableExporter {
		metrics.StartMetricsServer(cfg.ExporterPort)
	}

	if err := replay(cfg, os.Stdout); err != nil {
		util.Fatal("❌ Replay failed: %v", err)
	}
}

// replay feeds the fixture through a collector poll by poll, printing each
// record, and finally prints the acknowledgements that would be sent.
func replay(cfg *config.Config, w io.Writer) error {
	fx, err := fixture.Load(cfg.FixturePath)
	if err != nil {
		return err
	}
	keys, err := serde.ByName(cfg.KeyDeserializer)
	if err != nil {
		return err
	}
	values, err := serde.ByName(cfg.ValueDeserializer)
	if err != nil {
		return err
	}

	tp := fx.TopicIDPartition()
	pool := record.NewBufferPool(cfg.DecompressionBufferSize)
	completed, err := fetch.NewShareCompletedFetch(util.NewLogger("[FETCH] "), pool, tp, fx.PartitionData(),
		cfg.IsolationLevel, int16(cfg.ShareRequestVersion))
	if err != nil {
		return err
	}

	buf := consumer.NewFetchBuffer()
	defer buf.Close()
	buf.Add(completed)

	collector := consumer.NewCollector(nil, serde.New(keys, values), cfg.MaxPollRecords, cfg.CheckCrcs)
	om := offset.NewManager()

	fmt.Fprintf(w, "🔹 Replaying %s (%d acquired offsets, %s, request v%d)\n",
		tp, completed.AcquiredCount(), completed.IsolationLevel(), completed.RequestVersion())
	for poll := 1; ; poll++ {
		sf, err := collector.Collect(buf)
		for _, r := range sf.Records() {
			fmt.Fprintf(w, "  [poll %d] %s\n", poll, r)
		}
		if err != nil {
			fmt.Fprintf(w, "  [poll %d] ⚠️ %v\n", poll, err)
		}
		for p, acks := range sf.TakeAcknowledgements() {
			om.Add(p, acks)
		}

		next := buf.NextInLine()
		if buf.IsEmpty() && (next == nil || next.IsConsumed()) {
			break
		}
	}

	acks, ok := om.Take(tp)
	if !ok {
		fmt.Fprintln(w, "✅ Nothing to acknowledge")
		return nil
	}
	fmt.Fprintf(w, "✅ Acknowledgements for %s:\n", tp)
	for _, b := range acks.Batches() {
		fmt.Fprintf(w, "  %s\n", b)
	}
	return nil
}
