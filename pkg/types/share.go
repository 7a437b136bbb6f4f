package types

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// TopicIDPartition identifies a partition by topic id as well as name.
type TopicIDPartition struct {
	TopicID   uuid.UUID
	Topic     string
	Partition int32
}

func (tp TopicIDPartition) String() string {
	return fmt.Sprintf("%s:%s-%d", tp.TopicID, tp.Topic, tp.Partition)
}

// TopicPartition returns the name based form, e.g. "orders-3".
func (tp TopicIDPartition) TopicPartition() string {
	return fmt.Sprintf("%s-%d", tp.Topic, tp.Partition)
}

type IsolationLevel int8

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
)

func (l IsolationLevel) String() string {
	if l == ReadCommitted {
		return "read_committed"
	}
	return "read_uncommitted"
}

// ParseIsolationLevel accepts read_committed/read_uncommitted in either
// underscore or dash form.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "read_uncommitted", "":
		return ReadUncommitted, nil
	case "read_committed":
		return ReadCommitted, nil
	default:
		return ReadUncommitted, fmt.Errorf("unknown isolation level %q", s)
	}
}

func (l *IsolationLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("isolation_level must be read_committed or read_uncommitted")
	}
	parsed, err := ParseIsolationLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l *IsolationLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("isolation.level must be read_committed or read_uncommitted")
	}
	parsed, err := ParseIsolationLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// AcknowledgeType is the disposition of a delivered offset. The numeric
// values match the share acknowledgement wire encoding, where 0 is a gap.
type AcknowledgeType int8

const (
	AckGap AcknowledgeType = iota
	AckAccept
	AckRelease
	AckReject
)

func (t AcknowledgeType) String() string {
	switch t {
	case AckGap:
		return "GAP"
	case AckAccept:
		return "ACCEPT"
	case AckRelease:
		return "RELEASE"
	case AckReject:
		return "REJECT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int8(t))
	}
}

// Acknowledgement pairs an offset with its intent.
type Acknowledgement struct {
	Offset int64
	Type   AcknowledgeType
}

// AcquiredRecords is a broker-granted range [BaseOffset, LastOffset] of
// offsets this consumer may deliver, all with the same delivery count.
type AcquiredRecords struct {
	BaseOffset    int64 `yaml:"base_offset" json:"base_offset"`
	LastOffset    int64 `yaml:"last_offset" json:"last_offset"`
	DeliveryCount int16 `yaml:"delivery_count" json:"delivery_count"`
}

// AbortedTransaction reports that ProducerID aborted a transaction starting
// at FirstOffset.
type AbortedTransaction struct {
	ProducerID  int64 `yaml:"producer_id" json:"producer_id"`
	FirstOffset int64 `yaml:"first_offset" json:"first_offset"`
}

// PartitionData is one partition's already-parsed share fetch response.
type PartitionData struct {
	PartitionIndex int32
	ErrorCode      int16
	ErrorMessage   string

	// Records holds the raw, concatenated record batches.
	Records             []byte
	AcquiredRecords     []AcquiredRecords
	AbortedTransactions []AbortedTransaction
}
