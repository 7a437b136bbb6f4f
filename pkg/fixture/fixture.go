package fixture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/exp/mmap"
	"gopkg.in/yaml.v3"
)

// Fixture describes one captured share fetch partition response. The raw
// record batches live in a separate file next to the description.
type Fixture struct {
	Topic        string    `yaml:"topic"`
	TopicID      uuid.UUID `yaml:"topic_id"`
	Partition    int32     `yaml:"partition"`
	ErrorCode    int16     `yaml:"error_code,omitempty"`
	ErrorMessage string    `yaml:"error_message,omitempty"`

	// RecordsFile is resolved relative to the description file.
	RecordsFile         string                     `yaml:"records_file"`
	AcquiredRecords     []types.AcquiredRecords    `yaml:"acquired_records"`
	AbortedTransactions []types.AbortedTransaction `yaml:"aborted_transactions,omitempty"`

	records []byte
}

func (f *Fixture) TopicIDPartition() types.TopicIDPartition {
	return types.TopicIDPartition{TopicID: f.TopicID, Topic: f.Topic, Partition: f.Partition}
}

// Records returns the raw batch bytes loaded with the fixture.
func (f *Fixture) Records() []byte {
	return f.records
}

func (f *Fixture) SetRecords(raw []byte) {
	f.records = raw
}

// PartitionData builds the response a fetch reconciler consumes.
func (f *Fixture) PartitionData() types.PartitionData {
	return types.PartitionData{
		PartitionIndex:      f.Partition,
		ErrorCode:           f.ErrorCode,
		ErrorMessage:        f.ErrorMessage,
		Records:             f.records,
		AcquiredRecords:     f.AcquiredRecords,
		AbortedTransactions: f.AbortedTransactions,
	}
}

// Load reads the description at path and the records file it names.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}

	f := &Fixture{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Topic == "" {
		return nil, fmt.Errorf("fixture %s: topic is required", path)
	}

	if f.RecordsFile == "" {
		return f, nil
	}
	recordsPath := f.RecordsFile
	if !filepath.IsAbs(recordsPath) {
		recordsPath = filepath.Join(filepath.Dir(path), recordsPath)
	}
	f.records, err = readRecords(recordsPath)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func readRecords(path string) ([]byte, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap open failed: %w", err)
	}
	defer reader.Close()

	// the mapping is released on return, so the bytes are copied out
	raw := make([]byte, reader.Len())
	if len(raw) == 0 {
		return raw, nil
	}
	if _, err := reader.ReadAt(raw, 0); err != nil {
		return nil, fmt.Errorf("read records %s: %w", path, err)
	}
	return raw, nil
}

// Save writes the description to path and the raw records next to it.
func Save(path string, f *Fixture) error {
	if f.RecordsFile == "" {
		base := filepath.Base(path)
		f.RecordsFile = base[:len(base)-len(filepath.Ext(base))] + ".bin"
	}
	recordsPath := f.RecordsFile
	if !filepath.IsAbs(recordsPath) {
		recordsPath = filepath.Join(filepath.Dir(path), recordsPath)
	}
	if err := os.WriteFile(recordsPath, f.records, 0o644); err != nil {
		return fmt.Errorf("write records %s: %w", recordsPath, err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}
