// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture reads and writes capture files of framed display messages.
//
// A capture file is a plain sequence of CBOR maps, one per message, so a
// truncated recording is still readable up to the last complete record.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Record is one framed message with its receive time
type Record struct {
	Time time.Time
	Data []byte
}

// wireRecord is the on-disk form: {0: unix nanoseconds, 1: message bytes}
type wireRecord struct {
	UnixNano int64  `cbor:"0,keyasint"`
	Data     []byte `cbor:"1,keyasint"`
}

// Writer appends records to a capture stream
type Writer struct {
	enc   *cbor.Encoder
	count int
}

// NewWriter creates a capture writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w)}
}

// Write appends one record
func (w *Writer) Write(r Record) error {
	if err := w.enc.Encode(wireRecord{UnixNano: r.Time.UnixNano(), Data: r.Data}); err != nil {
		return fmt.Errorf("failed to encode record %d: %w", w.count, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	return w.count
}

// Reader reads records from a capture stream
type Reader struct {
	dec   *cbor.Decoder
	count int
}

// NewReader creates a capture reader
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream
func (r *Reader) Next() (Record, error) {
	var wr wireRecord
	if err := r.dec.Decode(&wr); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to decode record %d: %w", r.count, err)
	}
	r.count++
	return Record{Time: time.Unix(0, wr.UnixNano), Data: wr.Data}, nil
}
