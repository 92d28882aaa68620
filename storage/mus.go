package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docindex/core"
)

// Serializers for stored records. Field order is part of the on-disk format.
var (
	IDMUS       = idMUS{}
	DocumentMUS = documentMUS{}
	FragmentMUS = fragmentMUS{}
	JobMUS      = jobMUS{}
)

var (
	_ mus.Serializer[core.ID]       = IDMUS
	_ mus.Serializer[core.Document] = DocumentMUS
	_ mus.Serializer[core.Fragment] = FragmentMUS
	_ mus.Serializer[core.Job]      = JobMUS
)

// encoder writes fields sequentially into a pre-sized buffer.
type encoder struct {
	bs []byte
	n  int
}

func (e *encoder) string(v string)  { e.n += ord.String.Marshal(v, e.bs[e.n:]) }
func (e *encoder) uint64(v uint64)  { e.n += varint.Uint64.Marshal(v, e.bs[e.n:]) }
func (e *encoder) int64(v int64)    { e.n += varint.Int64.Marshal(v, e.bs[e.n:]) }
func (e *encoder) int(v int)        { e.n += varint.Int.Marshal(v, e.bs[e.n:]) }
func (e *encoder) time(v time.Time) { e.int64(v.UnixMicro()) }

func (e *encoder) vector(v []float32) {
	e.int(len(v))
	for _, f := range v {
		e.n += varint.Uint32.Marshal(math.Float32bits(f), e.bs[e.n:])
	}
}

// decoder reads fields sequentially and keeps the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func (d *decoder) string() (v string) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = ord.String.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) uint64() (v uint64) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = varint.Uint64.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) int64() (v int64) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = varint.Int64.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) int() (v int) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = varint.Int.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) time() time.Time {
	micros := d.int64()
	if d.err != nil {
		return time.Time{}
	}
	return time.UnixMicro(micros).UTC()
}

func (d *decoder) vector() []float32 {
	length := d.int()
	if d.err != nil {
		return nil
	}
	// Every element takes at least one byte.
	if length < 0 || length > len(d.bs)-d.n {
		d.err = fmt.Errorf("%w: vector length %d", ErrTruncatedData, length)
		return nil
	}
	if length == 0 {
		return nil
	}
	v := make([]float32, length)
	for i := range v {
		var (
			bits uint32
			n    int
		)
		bits, n, d.err = varint.Uint32.Unmarshal(d.bs[d.n:])
		d.n += n
		if d.err != nil {
			return nil
		}
		v[i] = math.Float32frombits(bits)
	}
	return v
}

func (d *decoder) result() (int, error) {
	if d.err != nil {
		return d.n, fmt.Errorf("%w: %w", ErrSerializationFailed, d.err)
	}
	return d.n, nil
}

func vectorSize(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

func timeSize(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

type idMUS struct{}

func (idMUS) Marshal(v core.ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (core.ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return core.ID(v), n, err
}

func (idMUS) Size(v core.ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type documentMUS struct{}

func (documentMUS) Marshal(v core.Document, bs []byte) int {
	e := encoder{bs: bs}
	e.string(v.ID)
	e.string(v.Owner)
	e.string(v.Title)
	e.string(string(v.Source))
	e.string(v.StoragePath)
	e.string(v.URL)
	e.string(string(v.Status))
	e.string(v.Error)
	e.time(v.CreatedAt)
	e.time(v.UpdatedAt)
	return e.n
}

func (documentMUS) Unmarshal(bs []byte) (core.Document, int, error) {
	d := decoder{bs: bs}
	v := core.Document{
		ID:          d.string(),
		Owner:       d.string(),
		Title:       d.string(),
		Source:      core.SourceType(d.string()),
		StoragePath: d.string(),
		URL:         d.string(),
		Status:      core.DocumentStatus(d.string()),
		Error:       d.string(),
		CreatedAt:   d.time(),
		UpdatedAt:   d.time(),
	}
	n, err := d.result()
	return v, n, err
}

func (documentMUS) Size(v core.Document) int {
	return ord.String.Size(v.ID) +
		ord.String.Size(v.Owner) +
		ord.String.Size(v.Title) +
		ord.String.Size(string(v.Source)) +
		ord.String.Size(v.StoragePath) +
		ord.String.Size(v.URL) +
		ord.String.Size(string(v.Status)) +
		ord.String.Size(v.Error) +
		timeSize(v.CreatedAt) +
		timeSize(v.UpdatedAt)
}

func (s documentMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type fragmentMUS struct{}

func (fragmentMUS) Marshal(v core.Fragment, bs []byte) int {
	e := encoder{bs: bs}
	e.uint64(uint64(v.ID))
	e.string(v.Owner)
	e.string(v.DocumentID)
	e.int(v.Ordinal)
	e.string(v.Content)
	e.uint64(uint64(v.Checksum))
	e.vector(v.Vector)
	e.time(v.CreatedAt)
	return e.n
}

func (fragmentMUS) Unmarshal(bs []byte) (core.Fragment, int, error) {
	d := decoder{bs: bs}
	v := core.Fragment{
		ID:         core.ID(d.uint64()),
		Owner:      d.string(),
		DocumentID: d.string(),
		Ordinal:    d.int(),
		Content:    d.string(),
		Checksum:   core.ID(d.uint64()),
		Vector:     d.vector(),
		CreatedAt:  d.time(),
	}
	n, err := d.result()
	return v, n, err
}

func (fragmentMUS) Size(v core.Fragment) int {
	return varint.Uint64.Size(uint64(v.ID)) +
		ord.String.Size(v.Owner) +
		ord.String.Size(v.DocumentID) +
		varint.Int.Size(v.Ordinal) +
		ord.String.Size(v.Content) +
		varint.Uint64.Size(uint64(v.Checksum)) +
		vectorSize(v.Vector) +
		timeSize(v.CreatedAt)
}

func (s fragmentMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type jobMUS struct{}

func (jobMUS) Marshal(v core.Job, bs []byte) int {
	e := encoder{bs: bs}
	e.uint64(uint64(v.ID))
	e.string(string(v.Kind))
	e.string(v.DocumentID)
	e.int64(int64(v.Timeout))
	e.int(v.Attempts)
	e.time(v.EnqueuedAt)
	e.time(v.VisibleAt)
	return e.n
}

func (jobMUS) Unmarshal(bs []byte) (core.Job, int, error) {
	d := decoder{bs: bs}
	v := core.Job{
		ID:         core.ID(d.uint64()),
		Kind:       core.JobKind(d.string()),
		DocumentID: d.string(),
		Timeout:    time.Duration(d.int64()),
		Attempts:   d.int(),
		EnqueuedAt: d.time(),
		VisibleAt:  d.time(),
	}
	n, err := d.result()
	return v, n, err
}

func (jobMUS) Size(v core.Job) int {
	return varint.Uint64.Size(uint64(v.ID)) +
		ord.String.Size(string(v.Kind)) +
		ord.String.Size(v.DocumentID) +
		varint.Int64.Size(int64(v.Timeout)) +
		varint.Int.Size(v.Attempts) +
		timeSize(v.EnqueuedAt) +
		timeSize(v.VisibleAt)
}

func (s jobMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}
