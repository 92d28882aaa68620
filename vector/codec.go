package vector

// Codec turns text into comparable vectors.
// Implementations must be deterministic and return vectors of Dimension() entries.
type Codec interface {
	Embed(text string) []float32
	Similarity(a, b []float32) float32
	Dimension() int
}

// HashCodec is the default Codec backed by Embed and Similarity.
type HashCodec struct{}

var _ Codec = HashCodec{}

// NewHashCodec returns the default hash-based codec.
func NewHashCodec() HashCodec {
	return HashCodec{}
}

func (HashCodec) Embed(text string) []float32 {
	return Embed(text)
}

func (HashCodec) Similarity(a, b []float32) float32 {
	return Similarity(a, b)
}

func (HashCodec) Dimension() int {
	return Dimension
}
