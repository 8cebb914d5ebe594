package infra

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
)

// KVStore is the persistence boundary of the engine. The Badger implementation
// in pkg/kvstore is the default; anything durable with atomic batched writes
// can stand in.

var (
	ErrKeyEmpty    = errors.New("key is empty")
	ErrKeyNotFound = errors.New("key not found")
)

type KVPair struct {
	Key   string
	Value []byte
}

// Batch accumulates the writes of one logical state transition. Stores stage
// their entries into a shared Batch and the engine commits it through
// SetManyAny in one shot.
type Batch map[string]any

type KVStore interface {
	GetName() string
	Set(k string, v string) error
	Get(k string) (v string, err error)
	// SetAny/GetAny marshal structured values through the store's codec.
	SetAny(k string, v any) error
	GetAny(k string, v any) (found bool, err error)
	// SetManyAny writes every entry in one atomic batch. Callers rely on
	// all-or-nothing semantics for multi-record state transitions.
	SetManyAny(entries map[string]any) error

	List(prefix string) ([]*KVPair, error)
	Delete(k string) error
	Close() error
}

// Codec encodes/decodes Go values to/from slices of bytes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Convenience variables
var (
	// JSON encodes/decodes Go values to/from JSON.
	JSON = JSONCodec{}
	// Gob encodes/decodes Go values to/from gob.
	Gob = GobCodec{}
)

type JSONCodec struct{}

func (c JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type GobCodec struct{}

func (c GobCodec) Marshal(v any) ([]byte, error) {
	buffer := new(bytes.Buffer)
	if err := gob.NewEncoder(buffer).Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (c GobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
