// Package wire defines the canonical CBOR encoding of memory images and
// calibration records, and the content hash that identifies an image.
package wire

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/derwiath/adventofcode-2019/calibrate"
	"github.com/derwiath/adventofcode-2019/pkg/intcode"
)

// ImageVersion is bumped whenever the image envelope changes shape, so
// hashes from different layouts never collide.
const ImageVersion = 1

// cborEncMode is the canonical mode; identical values always encode to
// identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Hash identifies a memory image by content.
type Hash [32]byte

// String returns the lowercase hex form.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash decodes the hex form produced by Hash.String.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("wire: parse hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("wire: parse hash: got %d bytes, want %d", len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

type image struct {
	Version uint8    `cbor:"1,keyasint"`
	Words   []uint64 `cbor:"2,keyasint"`
}

// EncodeImage serializes a memory image to canonical CBOR.
func EncodeImage(mem intcode.Memory) ([]byte, error) {
	if len(mem) == 0 {
		return nil, intcode.ErrEmptyImage
	}
	return cborEncMode.Marshal(image{Version: ImageVersion, Words: mem})
}

// DecodeImage deserializes a memory image from CBOR bytes.
func DecodeImage(data []byte) (intcode.Memory, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("wire: unmarshal image: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("wire: unsupported image version %d", img.Version)
	}
	if len(img.Words) == 0 {
		return nil, intcode.ErrEmptyImage
	}
	return intcode.Memory(img.Words), nil
}

// ImageHash returns the SHA-256 of the image's canonical encoding.
func ImageHash(mem intcode.Memory) (Hash, error) {
	data, err := EncodeImage(mem)
	if err != nil {
		return Hash{}, err
	}
	return Hash(sha256.Sum256(data)), nil
}

// Record is the stored outcome of one calibration search.
type Record struct {
	ID        string    `cbor:"1,keyasint"`
	ImageHash Hash      `cbor:"2,keyasint"`
	Target    uint64    `cbor:"3,keyasint"`
	NounMin   uint64    `cbor:"4,keyasint"`
	NounMax   uint64    `cbor:"5,keyasint"`
	VerbMin   uint64    `cbor:"6,keyasint"`
	VerbMax   uint64    `cbor:"7,keyasint"`
	Found     bool      `cbor:"8,keyasint"`
	Noun      uint64    `cbor:"9,keyasint,omitempty"`
	Verb      uint64    `cbor:"10,keyasint,omitempty"`
	Trials    int       `cbor:"11,keyasint"`
	Faults    int       `cbor:"12,keyasint"`
	CreatedAt time.Time `cbor:"13,keyasint"` // Second precision

	// FirstFault is the message of the earliest trial fault of a
	// not-found search.
	FirstFault string `cbor:"14,keyasint,omitempty"`
}

// NewRecord starts a record for a search over the given domains.
func NewRecord(hash Hash, target uint64, noun, verb calibrate.Domain) Record {
	return Record{
		ImageHash: hash,
		Target:    target,
		NounMin:   noun.Min,
		NounMax:   noun.Max,
		VerbMin:   verb.Min,
		VerbMax:   verb.Max,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// SetResult records a successful search.
func (r *Record) SetResult(res calibrate.Result) {
	r.Found = true
	r.Noun, r.Verb = res.Noun, res.Verb
	r.Trials, r.Faults = res.Trials, res.Faults
	r.FirstFault = ""
}

// SetNotFound records an exhausted search.
func (r *Record) SetNotFound(nf *calibrate.NotFoundError) {
	r.Found = false
	r.Noun, r.Verb = 0, 0
	r.Trials, r.Faults = nf.Trials, nf.Faults
	r.FirstFault = ""
	if nf.FirstFault != nil {
		r.FirstFault = nf.FirstFault.Error()
	}
}

// NounDomain returns the noun range the record was searched over.
func (r Record) NounDomain() calibrate.Domain {
	return calibrate.Domain{Min: r.NounMin, Max: r.NounMax}
}

// VerbDomain returns the verb range the record was searched over.
func (r Record) VerbDomain() calibrate.Domain {
	return calibrate.Domain{Min: r.VerbMin, Max: r.VerbMax}
}

// Outcome converts the record back into what FindCalibration returned.
// A stored first fault comes back as a plain error carrying its message.
func (r Record) Outcome() (calibrate.Result, error) {
	if !r.Found {
		nf := &calibrate.NotFoundError{Target: r.Target, Trials: r.Trials, Faults: r.Faults}
		if r.FirstFault != "" {
			nf.FirstFault = errors.New(r.FirstFault)
		}
		return calibrate.Result{}, nf
	}
	return calibrate.Result{
		Pair:   calibrate.Pair{Noun: r.Noun, Verb: r.Verb},
		Found:  true,
		Trials: r.Trials,
		Faults: r.Faults,
	}, nil
}

// MarshalRecord serializes a Record to canonical CBOR.
func MarshalRecord(r *Record) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalRecord deserializes a Record from CBOR bytes.
func UnmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("wire: unmarshal record: %w", err)
	}
	return &r, nil
}
