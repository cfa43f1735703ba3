package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Codec compresses values before deeper-tier storage. The algorithm id is
// stored alongside the bytes so a later read self-describes how to
// decompress; "none" is always legal.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Algorithm() string
}

// NoopCodec passes bytes through unchanged.
type NoopCodec struct{}

func (NoopCodec) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoopCodec) Decompress(data []byte) ([]byte, error) { return data, nil }
func (NoopCodec) Algorithm() string                      { return "none" }

// GzipCodec compresses with gzip at the default level.
type GzipCodec struct{}

func (GzipCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (GzipCodec) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return out, nil
}

func (GzipCodec) Algorithm() string { return "gzip" }

// NewCodec returns the codec for a configured algorithm name.
func NewCodec(algorithm string) (Codec, error) {
	switch algorithm {
	case "", "none":
		return NoopCodec{}, nil
	case "gzip":
		return GzipCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown compression algorithm %q", algorithm)
	}
}

// codecFor resolves the codec named in a stored envelope.
func codecFor(algorithm string) (Codec, bool) {
	c, err := NewCodec(algorithm)
	if err != nil {
		return nil, false
	}
	return c, true
}

// envelope is the self-describing stored form of one cache value.
type envelope struct {
	Algorithm string `json:"alg"`
	CreatedAt int64  `json:"created_unix_ns"`
	TTLMillis int64  `json:"ttl_ms"`
	Payload   []byte `json:"payload"`
}

// seal wraps value into an envelope using codec, stamping creation time
// and TTL. A zero ttl means no expiry.
func seal(codec Codec, value []byte, ttl time.Duration, now time.Time) ([]byte, error) {
	compressed, err := codec.Compress(value)
	if err != nil {
		return nil, fmt.Errorf("compressing cache value: %w", err)
	}
	return json.Marshal(envelope{
		Algorithm: codec.Algorithm(),
		CreatedAt: now.UnixNano(),
		TTLMillis: ttl.Milliseconds(),
		Payload:   compressed,
	})
}

// open unwraps a stored envelope. A corrupt envelope, unknown algorithm,
// failed decompression, or elapsed TTL all return ok=false: equivalent to
// a miss, never an error for the caller to propagate.
func open(data []byte, now time.Time) (value []byte, ok bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if env.TTLMillis > 0 {
		age := now.Sub(time.Unix(0, env.CreatedAt))
		if age > time.Duration(env.TTLMillis)*time.Millisecond {
			return nil, false
		}
	}
	codec, known := codecFor(env.Algorithm)
	if !known {
		return nil, false
	}
	out, err := codec.Decompress(env.Payload)
	if err != nil {
		return nil, false
	}
	return out, true
}
