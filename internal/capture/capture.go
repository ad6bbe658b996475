// Package capture records encoded frames to a CBOR stream and replays
// them in order.
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Record is one captured frame.
type Record struct {
	Seq   uint64    `cbor:"seq"`
	Time  time.Time `cbor:"time"`
	Name  string    `cbor:"name"`
	Frame []byte    `cbor:"frame"`
}

// encMode uses Core Deterministic Encoding: the same record always
// produces the same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("capture: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("capture: CBOR decoder initialization failed: " + err.Error())
	}
}

// Recorder appends records to a stream. Safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	seq uint64
	now func() time.Time
}

// NewRecorder returns a recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{
		enc: encMode.NewEncoder(w),
		now: time.Now,
	}
}

// Record appends one frame. The frame is copied into the record as is.
func (r *Recorder) Record(name string, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := Record{
		Seq:   r.seq,
		Time:  r.now().UTC(),
		Name:  name,
		Frame: frame,
	}
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("capture record %d: %w", rec.Seq, err)
	}
	r.seq++
	return nil
}

// Count returns how many records were written.
func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Replay decodes records from r and calls fn for each, in order. It stops
// at the first error from fn. A stream cut mid-record is an error.
func Replay(r io.Reader, fn func(Record) error) error {
	dec := decMode.NewDecoder(r)
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("capture decode: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
