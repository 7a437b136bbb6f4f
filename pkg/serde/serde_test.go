package serde_test

import (
	"errors"
	"testing"

	"github.com/downfa11-org/sharefetch/pkg/serde"
	"github.com/downfa11-org/sharefetch/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericDeserializers(t *testing.T) {
	v32, err := serde.Int32().Deserialize("t", nil, []byte{0, 0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, int32(256), v32)

	v64, err := serde.Int64().Deserialize("t", nil, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v64)

	_, err = serde.Int32().Deserialize("t", nil, []byte{1, 2, 3})
	assert.Error(t, err)
	_, err = serde.Int64().Deserialize("t", nil, []byte{1, 2, 3, 4})
	assert.Error(t, err)
}

func TestUUIDDeserializer(t *testing.T) {
	id := uuid.New()

	raw, err := serde.UUID().Deserialize("t", nil, id[:])
	require.NoError(t, err)
	assert.Equal(t, id, raw)

	text, err := serde.UUID().Deserialize("t", nil, []byte(id.String()))
	require.NoError(t, err)
	assert.Equal(t, id, text)

	_, err = serde.UUID().Deserialize("t", nil, []byte("not-a-uuid"))
	assert.Error(t, err)
}

func TestJSONDeserializer(t *testing.T) {
	type order struct {
		ID    int    `json:"id"`
		Owner string `json:"owner"`
	}
	got, err := serde.JSON[order]().Deserialize("orders", nil, []byte(`{"id":7,"owner":"kim"}`))
	require.NoError(t, err)
	assert.Equal(t, order{ID: 7, Owner: "kim"}, got)

	_, err = serde.JSON[order]().Deserialize("orders", nil, []byte(`{"id":`))
	assert.Error(t, err)
}

func TestDeserializerFuncSeesHeaders(t *testing.T) {
	d := serde.DeserializerFunc[string](func(topic string, headers []types.Header, data []byte) (string, error) {
		if len(headers) == 0 {
			return "", errors.New("missing headers")
		}
		return topic + ":" + headers[0].Key + ":" + string(data), nil
	})

	got, err := d.Deserialize("t", []types.Header{{Key: "h"}}, []byte("v"))
	require.NoError(t, err)
	assert.Equal(t, "t:h:v", got)
}

func TestByName(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want any
	}{
		{"string", []byte("hi"), "hi"},
		{"bytes", []byte{1, 2}, []byte{1, 2}},
		{"int32", []byte{0, 0, 0, 5}, int32(5)},
		{"long", []byte{0, 0, 0, 0, 0, 0, 0, 9}, int64(9)},
		{"json", []byte(`{"a":1}`), map[string]any{"a": float64(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := serde.ByName(tt.name)
			require.NoError(t, err)
			got, err := d.Deserialize("t", nil, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := serde.ByName("avro")
	assert.Error(t, err)
}
