package mpd

// ContentType classifies the kind of media an AdaptationSet carries.
type ContentType int

const (
	ContentTypeUnknown ContentType = iota
	ContentTypeAudio
	ContentTypeVideo
	ContentTypeText
)

func (c ContentType) String() string {
	switch c {
	case ContentTypeAudio:
		return "audio"
	case ContentTypeVideo:
		return "video"
	case ContentTypeText:
		return "text"
	default:
		return "unknown"
	}
}

// Format describes one encoding of a Representation: its MIME type, codec
// string, optional video/audio characteristics, bitrate and the playback
// rate up to which it can be played out (used by trick-play selection).
type Format struct {
	ID                string
	MimeType          string
	Codecs            string
	Width             int32
	Height            int32
	FrameRate         float64
	MaxPlayoutRate    float64
	AudioChannels     int32
	AudioSamplingRate int32
	Bitrate           int32
	Language          string

	// ContentID passes through the owning Representation's content
	// identifier, when one is set.
	ContentID string
	// RoleDescriptors carries the SupplementalProperty/EssentialProperty
	// descriptors declared on the Representation element itself; the
	// AdaptationSet's own descriptors stay on AdaptationSet.Descriptors.
	RoleDescriptors []DescriptorType
}

// NewFormat constructs a Format, defaulting MaxPlayoutRate to 1: every
// representation can be played at normal speed.
func NewFormat(id, mimeType string) Format {
	return Format{ID: id, MimeType: mimeType, MaxPlayoutRate: 1}
}

// mimeCategory returns the top-level MIME type, the part before the first
// '/' (e.g. "video", "audio", "text", "application"), or "" when mimeType
// has no '/'. It is used as the coarse selection key.
func mimeCategory(mimeType string) string {
	for i := 0; i < len(mimeType); i++ {
		if mimeType[i] == '/' {
			return mimeType[:i]
		}
	}
	return ""
}

// Category returns this format's coarse MIME category.
func (f Format) Category() string { return mimeCategory(f.MimeType) }
