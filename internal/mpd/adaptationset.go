package mpd

// AdaptationSet is a set of interchangeable Representations of the same
// content type. All member Representations must share a ContentType; the
// parser enforces this by reconciling it after each Representation is
// parsed.
type AdaptationSet struct {
	ID                 string
	ContentType        ContentType
	Representations    []*Representation
	ContentProtections []ContentProtection
	// SegmentBase is shared by Representations that don't define their own
	// (nil means the owning Period's SegmentBase applies instead).
	SegmentBase SegmentBase
	Descriptors []DescriptorType
	Language    string
}

// NewAdaptationSet constructs an empty AdaptationSet of the given content
// type.
func NewAdaptationSet(id string, contentType ContentType) *AdaptationSet {
	return &AdaptationSet{ID: id, ContentType: contentType}
}

// EffectiveSegmentBase returns this AdaptationSet's own SegmentBase, or the
// enclosing Period's when this AdaptationSet doesn't define one.
func (a *AdaptationSet) EffectiveSegmentBase(periodBase SegmentBase) SegmentBase {
	if a.SegmentBase != nil {
		return a.SegmentBase
	}
	return periodBase
}

// ContentTypeFromMime classifies a MIME type into the coarse content
// categories an AdaptationSet declares. Application MIME types are
// treated as text (caption and subtitle containers).
func ContentTypeFromMime(mimeType string) ContentType {
	switch mimeCategory(mimeType) {
	case "video":
		return ContentTypeVideo
	case "audio":
		return ContentTypeAudio
	case "text", "application":
		return ContentTypeText
	default:
		return ContentTypeUnknown
	}
}
