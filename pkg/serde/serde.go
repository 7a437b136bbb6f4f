// Package serde holds the key and value deserializers applied to records as
// they are delivered.
package serde

import (
	"fmt"
	"strings"

	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kbin"
)

// Deserializer turns the raw bytes of a key or value into T. It is never
// called for null data.
type Deserializer[T any] interface {
	Deserialize(topic string, headers []types.Header, data []byte) (T, error)
}

// DeserializerFunc adapts a function to Deserializer.
type DeserializerFunc[T any] func(topic string, headers []types.Header, data []byte) (T, error)

func (f DeserializerFunc[T]) Deserialize(topic string, headers []types.Header, data []byte) (T, error) {
	return f(topic, headers, data)
}

// Deserializers pairs the key and value deserializers of a consumer.
type Deserializers[K, V any] struct {
	Key   Deserializer[K]
	Value Deserializer[V]
}

func New[K, V any](key Deserializer[K], value Deserializer[V]) Deserializers[K, V] {
	return Deserializers[K, V]{Key: key, Value: value}
}

type stringDeserializer struct{}

func (stringDeserializer) Deserialize(_ string, _ []types.Header, data []byte) (string, error) {
	return string(data), nil
}

type bytesDeserializer struct{}

func (bytesDeserializer) Deserialize(_ string, _ []types.Header, data []byte) ([]byte, error) {
	return data, nil
}

type int32Deserializer struct{}

func (int32Deserializer) Deserialize(_ string, _ []types.Header, data []byte) (int32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("size of data received by int32 deserializer is not 4: %d", len(data))
	}
	r := kbin.Reader{Src: data}
	return r.Int32(), nil
}

type int64Deserializer struct{}

func (int64Deserializer) Deserialize(_ string, _ []types.Header, data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("size of data received by int64 deserializer is not 8: %d", len(data))
	}
	r := kbin.Reader{Src: data}
	return r.Int64(), nil
}

type uuidDeserializer struct{}

// Deserialize accepts either the 16 raw bytes or the 36 character text form.
func (uuidDeserializer) Deserialize(_ string, _ []types.Header, data []byte) (uuid.UUID, error) {
	if len(data) == 16 {
		return uuid.FromBytes(data)
	}
	id, err := uuid.ParseBytes(data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("error parsing uuid: %w", err)
	}
	return id, nil
}

type jsonDeserializer[T any] struct{}

func (jsonDeserializer[T]) Deserialize(_ string, _ []types.Header, data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("error deserializing json: %w", err)
	}
	return v, nil
}

func String() Deserializer[string]  { return stringDeserializer{} }
func Bytes() Deserializer[[]byte]   { return bytesDeserializer{} }
func Int32() Deserializer[int32]    { return int32Deserializer{} }
func Int64() Deserializer[int64]    { return int64Deserializer{} }
func UUID() Deserializer[uuid.UUID] { return uuidDeserializer{} }
func JSON[T any]() Deserializer[T]  { return jsonDeserializer[T]{} }

// Any erases the result type, for deserializers chosen by configuration.
func Any[T any](d Deserializer[T]) Deserializer[any] {
	return DeserializerFunc[any](func(topic string, headers []types.Header, data []byte) (any, error) {
		return d.Deserialize(topic, headers, data)
	})
}

// ByName returns the built-in deserializer registered under name: string,
// bytes, int32, int64, uuid or json. The json form decodes into any.
func ByName(name string) (Deserializer[any], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "":
		return Any(String()), nil
	case "bytes", "bytearray":
		return Any(Bytes()), nil
	case "int32", "integer":
		return Any(Int32()), nil
	case "int64", "long":
		return Any(Int64()), nil
	case "uuid":
		return Any(UUID()), nil
	case "json":
		return Any(JSON[any]()), nil
	default:
		return nil, fmt.Errorf("unknown deserializer %q", name)
	}
}
