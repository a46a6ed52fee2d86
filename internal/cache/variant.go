package cache

// Descriptor describes one processed variant of a source image: the source
// identifier plus the canonical serialization of the operations applied to
// it. Two descriptors with the same String() address the same cached object.
type Descriptor struct {
	// Identifier is the logical identifier of the source image.
	Identifier string
	// Operations is the canonical string form of the full operation list.
	Operations string
	// Extension is the preferred filename extension of the output format.
	// Empty when the variant has no declared output format.
	Extension string
	// MediaType is the output format's media type, used as the upload
	// Content-Type. May be empty.
	MediaType string
}

// String returns the canonical representation hashed into the object key.
func (d Descriptor) String() string {
	return d.Identifier + ";" + d.Operations
}
