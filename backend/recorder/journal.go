package recorder

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MarshalJournal encodes calls as msgpack.
func MarshalJournal(calls []Call) ([]byte, error) {
	return msgpack.Marshal(calls)
}

// UnmarshalJournal decodes a msgpack journal.
func UnmarshalJournal(data []byte) ([]Call, error) {
	var calls []Call
	if err := msgpack.Unmarshal(data, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

// maxFrame bounds a single journal frame read from a stream.
const maxFrame = 64 << 20

// Encoder writes length-prefixed journal frames.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes calls as one frame: a 4-byte big-endian length followed by
// the msgpack payload.
func (e *Encoder) Encode(calls []Call) error {
	data, err := MarshalJournal(calls)
	if err != nil {
		return err
	}

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	if _, err := e.w.Write(length[:]); err != nil {
		return err
	}
	_, err = e.w.Write(data)
	return err
}

// Decoder reads frames written by Encoder.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads the next frame. It returns io.EOF when the stream ends
// cleanly between frames.
func (d *Decoder) Decode() ([]Call, error) {
	var length [4]byte
	if _, err := io.ReadFull(d.r, length[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("truncated frame header: %w", err)
		}
		return nil, err
	}

	n := binary.BigEndian.Uint32(length[:])
	if n > maxFrame {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit %d", n, maxFrame)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return UnmarshalJournal(data)
}
