package store

import (
	"encoding/binary"
	"log/slog"
)

// RouteFunc receives each record immediately after it is appended. The
// payload slice borrows the store buffer and must not be retained past the
// call; the next ingest may reallocate the buffer.
type RouteFunc func(tag string, payload []byte, sequence, offset uint64)

// RecordRef is a borrowed view of one stored record.
type RecordRef struct {
	Offset   uint64
	Sequence uint64
	Payload  []byte
}

// recordInfo is the per-tag bookkeeping entry.
type recordInfo struct {
	offset   uint64
	sequence uint64
}

// Store is the append-only framed record buffer. Single writer; readers may
// borrow payloads only while no ingest is in flight.
type Store struct {
	buf         []byte
	recordCount uint64
	nextSeq     uint64
	maxFrame    uint32

	seqToOff map[uint64]uint64
	offToSeq map[uint64]uint64
	byTag    map[string][]recordInfo

	log *slog.Logger
}

// Options configures a Store. The zero value selects the defaults.
type Options struct {
	InitialCapacity int
	MaxFrameLength  uint32
	Logger          *slog.Logger
}

// New creates an empty store.
func New(opts Options) *Store {
	if opts.InitialCapacity <= 0 {
		opts.InitialCapacity = DefaultInitialCapacity
	}
	if opts.MaxFrameLength == 0 {
		opts.MaxFrameLength = DefaultMaxFrameLength
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		buf:      make([]byte, 0, opts.InitialCapacity),
		nextSeq:  1,
		maxFrame: opts.MaxFrameLength,
		seqToOff: make(map[uint64]uint64),
		offToSeq: make(map[uint64]uint64),
		byTag:    make(map[string][]recordInfo),
		log:      opts.Logger,
	}
}

// Ingest consumes the prefix of data that parses into complete frames,
// appending each and routing it through route. Partial trailing bytes are
// not consumed; the caller keeps them for the next call. An oversized
// length prefix stops ingest at the boundary with ErrFrameTooLarge.
func (s *Store) Ingest(data []byte, route RouteFunc) (consumed int, records int, err error) {
	consumed, records, err = ScanFrames(data, s.maxFrame, func(payload []byte) {
		s.append(payload, route)
	})
	if err != nil {
		s.log.Debug("ingest stopped at bad frame", "consumed", consumed, "records", records, "err", err)
	}
	return consumed, records, err
}

// IngestOne appends a single payload, writing the length prefix itself, and
// returns the assigned sequence.
func (s *Store) IngestOne(payload []byte, route RouteFunc) (uint64, error) {
	if uint64(len(payload)) > uint64(s.maxFrame) {
		return 0, ErrFrameTooLarge
	}
	return s.append(payload, route), nil
}

// IngestOneTagged appends a payload under an explicit routing tag instead
// of the one embedded in its bytes. The payload is stored verbatim, so an
// exported stream replays under the embedded tag; the override exists for
// multi-source routing, which is an in-memory concern.
func (s *Store) IngestOneTagged(tag string, payload []byte, route RouteFunc) (uint64, error) {
	if uint64(len(payload)) > uint64(s.maxFrame) {
		return 0, ErrFrameTooLarge
	}
	return s.appendTagged(tag, payload, route), nil
}

// append frames the payload into the buffer, indexes it, and routes it.
func (s *Store) append(payload []byte, route RouteFunc) uint64 {
	return s.appendTagged(Tag(payload), payload, route)
}

func (s *Store) appendTagged(tag string, payload []byte, route RouteFunc) uint64 {
	offset := uint64(len(s.buf))
	var prefix [PrefixSize]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
	s.buf = append(s.buf, prefix[:]...)
	s.buf = append(s.buf, payload...)

	seq := s.nextSeq
	s.nextSeq++
	s.recordCount++
	s.seqToOff[seq] = offset
	s.offToSeq[offset] = seq

	s.byTag[tag] = append(s.byTag[tag], recordInfo{offset: offset, sequence: seq})

	// Route with a view into the store buffer, not the caller's slice: the
	// borrow the callback hands out must stay valid until the next ingest.
	stored := s.buf[offset+PrefixSize : offset+PrefixSize+uint64(len(payload))]
	if route != nil {
		route(tag, stored, seq, offset)
	}
	return seq
}

// At returns the payload framed at offset, borrowed from the buffer.
func (s *Store) At(offset uint64) ([]byte, bool) {
	if offset+PrefixSize > uint64(len(s.buf)) {
		return nil, false
	}
	n := uint64(binary.LittleEndian.Uint32(s.buf[offset:]))
	end := offset + PrefixSize + n
	if end > uint64(len(s.buf)) {
		return nil, false
	}
	return s.buf[offset+PrefixSize : end], true
}

// SequenceAt returns the sequence of the record framed at offset.
func (s *Store) SequenceAt(offset uint64) (uint64, bool) {
	seq, ok := s.offToSeq[offset]
	return seq, ok
}

// OffsetOf returns the offset of the record with the given sequence.
func (s *Store) OffsetOf(sequence uint64) (uint64, bool) {
	off, ok := s.seqToOff[sequence]
	return off, ok
}

// Has reports whether a sequence exists.
func (s *Store) Has(sequence uint64) bool {
	_, ok := s.seqToOff[sequence]
	return ok
}

// IterateByTag visits every record with the given tag in insertion order.
// The visitor returns false to stop early. Payloads are borrowed.
func (s *Store) IterateByTag(tag string, visit func(RecordRef) bool) {
	for _, info := range s.byTag[tag] {
		payload, ok := s.At(info.offset)
		if !ok {
			continue
		}
		if !visit(RecordRef{Offset: info.offset, Sequence: info.sequence, Payload: payload}) {
			return
		}
	}
}

// ByTagIndex returns the i-th record of a tag in insertion order.
func (s *Store) ByTagIndex(tag string, i int) (RecordRef, bool) {
	infos := s.byTag[tag]
	if i < 0 || i >= len(infos) {
		return RecordRef{}, false
	}
	payload, ok := s.At(infos[i].offset)
	if !ok {
		return RecordRef{}, false
	}
	return RecordRef{Offset: infos[i].offset, Sequence: infos[i].sequence, Payload: payload}, true
}

// CountByTag returns the number of records carrying tag.
func (s *Store) CountByTag(tag string) int {
	return len(s.byTag[tag])
}

// Records returns the total record count.
func (s *Store) Records() uint64 { return s.recordCount }

// Size returns the live byte length of the buffer.
func (s *Store) Size() uint64 { return uint64(len(s.buf)) }

// ExportLive copies the live prefix of the buffer. The result is a valid
// stream: loading it into an empty store reproduces every sequence and
// offset.
func (s *Store) ExportLive() []byte {
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// Clear resets the store to empty. Sequences restart at 1.
func (s *Store) Clear() {
	s.buf = s.buf[:0]
	s.recordCount = 0
	s.nextSeq = 1
	s.seqToOff = make(map[uint64]uint64)
	s.offToSeq = make(map[uint64]uint64)
	s.byTag = make(map[string][]recordInfo)
}

// Load clears the store and replays a complete exported stream through the
// ingest path, reproducing sequences, offsets, and routing. Trailing bytes
// that do not frame a whole record surface as ErrShortFrame; the complete
// prefix is still loaded.
func (s *Store) Load(data []byte, route RouteFunc) error {
	s.Clear()
	consumed, records, err := s.Ingest(data, route)
	if err != nil {
		return err
	}
	if consumed != len(data) {
		s.log.Debug("load left residue", "consumed", consumed, "records", records, "residue", len(data)-consumed)
		return ErrShortFrame
	}
	return nil
}
