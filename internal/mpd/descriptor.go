package mpd

// DescriptorType models a DASH "DescriptorType" element (used for Role,
// Accessibility, EssentialProperty, SupplementalProperty and similar).
// SchemeIDURI always holds `@schemeIdUri` and ID always holds `@id`; the
// two attributes never clobber each other.
type DescriptorType struct {
	SchemeIDURI string
	Value       string
	ID          string
}
