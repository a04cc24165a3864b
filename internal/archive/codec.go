// Package archive implements the .rblogs binary codec, the
// chain-verify/serialize/compress exporter, and the
// parse/verify/dedupe/insert importer.
package archive

import (
	"bytes"
	"compress/flate"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

// Magic is the five-byte "RBLOG" signature at offset 0 of every
// archive.
var Magic = [5]byte{0x52, 0x42, 0x4C, 0x4F, 0x47}

// FormatVersion is the only format version byte this codec emits or
// accepts.
const FormatVersion byte = 0x01

const (
	headerSize = 10 // magic(5) + version(1) + count(4)
	footerSize = 64 // lowercase hex SHA-256 of the uncompressed body
	minArchive = headerSize + footerSize
)

// record is the fixed-field-order shape archive bodies use —
// deliberately distinct from canon's sorted-key form (see internal/canon):
// this order is the byte-level round-trip guarantee for .rblogs files,
// not a hash input.
type record struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	SpaceID        string         `json:"space_id"`
	Timestamp      string         `json:"timestamp"`
	SequenceNumber int64          `json:"sequence_number"`
	Hash           string         `json:"hash"`
	PreviousHash   *string        `json:"previous_hash"`
	Version        int            `json:"version"`
	Payload        map[string]any `json:"payload"`
}

// assemble builds a complete .rblogs byte string from an ordered list
// of archive records: header + deflate-compressed JSON body + footer.
func assemble(records []record) ([]byte, error) {
	body, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("archive: marshal body: %w", err)
	}
	return assembleFromBody(body, len(records))
}

func assembleFromBody(body []byte, count int) ([]byte, error) {
	sum := sha256.Sum256(body)
	footer := []byte(hex.EncodeToString(sum[:]))

	compressed, err := deflate(body)
	if err != nil {
		return nil, fmt.Errorf("archive: compress body: %w", err)
	}

	out := make([]byte, 0, headerSize+len(compressed)+footerSize)
	out = append(out, Magic[:]...)
	out = append(out, FormatVersion)
	out = append(out, be32(uint32(count))...)
	out = append(out, compressed...)
	out = append(out, footer...)
	return out, nil
}

// envelope is the fully-validated, decompressed, but not yet
// per-record-validated contents of a .rblogs archive: each element of
// Raw is one JSON object from the body array, still undecoded so the
// importer can validate each independently and record failures
// per-element instead of failing the whole parse.
type envelope struct {
	EventCount uint32
	Raw        []json.RawMessage
}

// parse validates and decodes a .rblogs byte string: length, magic,
// version, decompression, footer hash, JSON array decoding, and the
// event-count cross-check, in that order. Per-event shape validation
// is the importer's job.
func parse(data []byte) (*envelope, error) {
	if len(data) < minArchive {
		return nil, fmt.Errorf("archive too short: %d bytes, need at least %d", len(data), minArchive)
	}

	if !bytes.Equal(data[0:5], Magic[:]) {
		return nil, fmt.Errorf("bad magic bytes")
	}

	version := data[5]
	if version != FormatVersion {
		return nil, fmt.Errorf("unsupported format version 0x%02x", version)
	}

	count := be32ToUint(data[6:10])

	bodyStart := headerSize
	bodyEnd := len(data) - footerSize
	if bodyEnd < bodyStart {
		return nil, fmt.Errorf("archive too short for declared footer")
	}
	compressed := data[bodyStart:bodyEnd]
	footer := data[bodyEnd:]

	body, err := inflate(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress body: %w", err)
	}

	sum := sha256.Sum256(body)
	expected := hex.EncodeToString(sum[:])
	if expected != string(footer) {
		return nil, fmt.Errorf("body hash mismatch: footer declares %s, computed %s", footer, expected)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("body is not a JSON array: %w", err)
	}

	if uint32(len(raw)) != count {
		return nil, fmt.Errorf("Header declares %d, body has %d", count, len(raw))
	}

	return &envelope{EventCount: count, Raw: raw}, nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}

func be32(n uint32) []byte {
	return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
}

func be32ToUint(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
