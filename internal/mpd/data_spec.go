package mpd

// DataSpec flag bits. No component sets FlagAllowGzip today; it is kept
// for callers that construct a DataSpec directly.
const (
	FlagAllowGzip uint32 = 1 << iota
)

// DataSpec describes one HTTP (or POST) request to an internal/httpsource
// Source: a URI, an optional request body, and a byte range expressed two
// ways (an absolute stream position used for chunk bookkeeping, and a
// request-local position/length pair used to build the Range header).
type DataSpec struct {
	URI                     string
	PostBody                []byte
	AbsoluteStreamPosition  int64
	Position                int64
	Length                  int64 // LengthUnbounded for "to end of resource"
	Key                     string
	Flags                   uint32
}

// NewDataSpec builds a DataSpec covering the whole resource (no byte
// range, no post body).
func NewDataSpec(uri string) DataSpec {
	return DataSpec{URI: uri, Length: LengthUnbounded}
}

// Remainder returns a DataSpec covering everything after bytesLoaded bytes
// of spec have already been consumed, used to resume a partially-loaded
// chunk after a transient failure.
func Remainder(spec DataSpec, bytesLoaded int64) DataSpec {
	length := spec.Length
	if length != LengthUnbounded {
		length -= bytesLoaded
	}
	return DataSpec{
		URI:                    spec.URI,
		PostBody:               spec.PostBody,
		AbsoluteStreamPosition: spec.AbsoluteStreamPosition + bytesLoaded,
		Position:               spec.Position + bytesLoaded,
		Length:                 length,
		Key:                    spec.Key,
		Flags:                  spec.Flags,
	}
}
