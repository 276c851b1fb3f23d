// Package mpdparser parses a DASH Media Presentation Description into the
// internal/mpd data model. It streams over encoding/xml tokens rather than
// building a DOM, descending into a handler per element and tracking
// inheritance (base URLs, segment bases, representation attribute
// defaults) down the MPD > Period > AdaptationSet > Representation
// hierarchy.
package mpdparser

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/streamcore/ndash/internal/mpd"
	"github.com/streamcore/ndash/pkg/dashtime"
	"github.com/streamcore/ndash/pkg/urischeme"
)

// Parser builds MediaPresentationDescriptions from manifest documents.
// ContentID, when set, is stamped onto every parsed Representation.
type Parser struct {
	ContentID string
}

// Parse parses one manifest document. connectionURL is the URL the
// document was fetched from; it seeds base-URL resolution. Any hard parse
// error returns a nil MPD.
func (p *Parser) Parse(connectionURL string, data []byte) (*mpd.MediaPresentationDescription, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("mpdparser: no MPD element found")
		}
		if err != nil {
			return nil, fmt.Errorf("mpdparser: reading document: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != "MPD" {
				return nil, fmt.Errorf("mpdparser: root element is %q, want MPD", se.Name.Local)
			}
			return p.parseMPD(d, se, connectionURL)
		}
	}
}

func (p *Parser) parseMPD(d *xml.Decoder, se xml.StartElement, baseURL string) (*mpd.MediaPresentationDescription, error) {
	availabilityStartTimeMs := parseDateTimeAttr(se, "availabilityStartTime", -1)
	durationMs := parseDurationAttr(se, "mediaPresentationDuration", -1)
	minBufferTimeMs := parseDurationAttr(se, "minBufferTime", -1)
	dynamic := attr(se, "type") == "dynamic"

	minUpdatePeriodMs := int64(-1)
	timeShiftBufferDepthMs := int64(-1)
	if dynamic {
		minUpdatePeriodMs = parseDurationAttr(se, "minimumUpdatePeriod", -1)
		timeShiftBufferDepthMs = parseDurationAttr(se, "timeShiftBufferDepth", -1)
	}

	out := &mpd.MediaPresentationDescription{
		AvailabilityStartTimeMs: availabilityStartTimeMs,
		DurationMs:              durationMs,
		MinBufferTimeMs:         minBufferTimeMs,
		Dynamic:                 dynamic,
		MinUpdatePeriodMs:       minUpdatePeriodMs,
		TimeShiftBufferDepthMs:  timeShiftBufferDepthMs,
	}

	nextPeriodStartMs := int64(0)
	if dynamic {
		nextPeriodStartMs = -1
	}
	seenEarlyAccessPeriod := false
	seenFirstBaseURL := false

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("mpdparser: reading MPD children: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "BaseURL":
				resolved, err := parseBaseURL(d, baseURL)
				if err != nil {
					return nil, err
				}
				if !seenFirstBaseURL {
					baseURL = resolved
					seenFirstBaseURL = true
				}
			case "SupplementalProperty", "EssentialProperty":
				out.Descriptors = append(out.Descriptors, parseDescriptor(t))
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "UTCTiming":
				out.UTCTiming = &mpd.UTCTiming{SchemeIDURI: attr(t, "schemeIdUri"), Value: attr(t, "value")}
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "Location":
				text, err := nextText(d)
				if err != nil {
					return nil, err
				}
				out.Location = text
			case "Period":
				if seenEarlyAccessPeriod {
					if err := d.Skip(); err != nil {
						return nil, err
					}
					continue
				}
				period, periodDurationMs, err := p.parsePeriod(d, t, baseURL, nextPeriodStartMs)
				if err != nil {
					return nil, err
				}
				if period.StartMs == -1 {
					if !dynamic {
						return nil, fmt.Errorf("mpdparser: unable to determine start of period %q", period.ID)
					}
					// Early access period: not yet on the timeline. All
					// subsequent periods must also be early access.
					seenEarlyAccessPeriod = true
					continue
				}
				if periodDurationMs == -1 {
					nextPeriodStartMs = -1
				} else {
					nextPeriodStartMs = period.StartMs + periodDurationMs
				}
				out.Periods = append(out.Periods, period)
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if out.DurationMs == -1 {
				if nextPeriodStartMs != -1 {
					// The end of the final period is the presentation
					// duration.
					out.DurationMs = nextPeriodStartMs
				} else if !dynamic {
					return nil, fmt.Errorf("mpdparser: static presentation with unknown duration")
				}
			}
			if len(out.Periods) == 0 {
				return nil, fmt.Errorf("mpdparser: no periods")
			}
			return out, nil
		}
	}
}

func (p *Parser) parsePeriod(d *xml.Decoder, se xml.StartElement, baseURL string, defaultStartMs int64) (*mpd.Period, int64, error) {
	period := mpd.NewPeriod(attr(se, "id"), parseDurationAttr(se, "start", defaultStartMs))
	durationMs := parseDurationAttr(se, "duration", -1)

	seenFirstBaseURL := false
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, -1, fmt.Errorf("mpdparser: reading Period children: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "BaseURL":
				resolved, err := parseBaseURL(d, baseURL)
				if err != nil {
					return nil, -1, err
				}
				if !seenFirstBaseURL {
					baseURL = resolved
					seenFirstBaseURL = true
				}
			case "AdaptationSet":
				as, err := p.parseAdaptationSet(d, t, baseURL, period.SegmentBase)
				if err != nil {
					return nil, -1, err
				}
				period.AdaptationSets = append(period.AdaptationSets, as)
			case "SegmentBase":
				sb, err := p.parseSingleSegmentBase(d, t, baseURL, nil)
				if err != nil {
					return nil, -1, err
				}
				period.SegmentBase = sb
			case "SegmentList":
				sl, err := p.parseSegmentList(d, t, baseURL, nil)
				if err != nil {
					return nil, -1, err
				}
				period.SegmentBase = sl
			case "SegmentTemplate":
				st, err := p.parseSegmentTemplate(d, t, baseURL, nil)
				if err != nil {
					return nil, -1, err
				}
				period.SegmentBase = st
			default:
				if err := d.Skip(); err != nil {
					return nil, -1, err
				}
			}
		case xml.EndElement:
			return period, durationMs, nil
		}
	}
}

// representationDefaults carries AdaptationSet-level format attributes
// inherited by Representations that don't override them.
type representationDefaults struct {
	mimeType          string
	codecs            string
	width             int32
	height            int32
	frameRate         float64
	maxPlayoutRate    float64
	audioChannels     int32
	audioSamplingRate int32
	language          string
}

func (p *Parser) parseAdaptationSet(d *xml.Decoder, se xml.StartElement, baseURL string, periodBase mpd.SegmentBase) (*mpd.AdaptationSet, error) {
	as := mpd.NewAdaptationSet(attr(se, "id"), contentTypeFromAttr(attr(se, "contentType")))

	defaults := representationDefaults{
		mimeType: attr(se, "mimeType"),
		codecs:   attr(se, "codecs"),
		language: attr(se, "lang"),
	}
	var err error
	if defaults.width, err = parseIntAttr(se, "width", -1); err != nil {
		return nil, err
	}
	if defaults.height, err = parseIntAttr(se, "height", -1); err != nil {
		return nil, err
	}
	if defaults.frameRate, err = parseFrameRateAttr(se, -1); err != nil {
		return nil, err
	}
	maxPlayoutRate, err := parseIntAttr(se, "maxPlayoutRate", 1)
	if err != nil {
		return nil, err
	}
	defaults.maxPlayoutRate = float64(maxPlayoutRate)
	defaults.audioChannels = -1
	if defaults.audioSamplingRate, err = parseIntAttr(se, "audioSamplingRate", -1); err != nil {
		return nil, err
	}
	as.Language = defaults.language

	segmentBase := mpd.SegmentBase(nil)
	seenFirstBaseURL := false
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("mpdparser: reading AdaptationSet children: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "BaseURL":
				resolved, err := parseBaseURL(d, baseURL)
				if err != nil {
					return nil, err
				}
				if !seenFirstBaseURL {
					baseURL = resolved
					seenFirstBaseURL = true
				}
			case "SupplementalProperty", "EssentialProperty", "Role", "Accessibility":
				as.Descriptors = append(as.Descriptors, parseDescriptor(t))
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "ContentProtection":
				cp, err := p.parseContentProtection(d, t)
				if err != nil {
					return nil, err
				}
				if cp != nil {
					as.ContentProtections = append(as.ContentProtections, *cp)
				}
			case "ContentComponent":
				childLang := attr(t, "lang")
				merged, err := checkLanguageConsistency(defaults.language, childLang)
				if err != nil {
					return nil, err
				}
				defaults.language = merged
				as.Language = merged
				reconciled, err := checkContentTypeConsistency(as.ContentType, contentTypeFromAttr(attr(t, "contentType")))
				if err != nil {
					return nil, err
				}
				as.ContentType = reconciled
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "AudioChannelConfiguration":
				channels, err := parseAudioChannelConfiguration(t)
				if err != nil {
					return nil, err
				}
				defaults.audioChannels = channels
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "Representation":
				rep, repProtections, err := p.parseRepresentation(d, t, baseURL, defaults, segmentBase)
				if err != nil {
					return nil, err
				}
				as.ContentProtections = append(as.ContentProtections, repProtections...)
				reconciled, err := checkContentTypeConsistency(as.ContentType, contentTypeFromFormat(rep.Format))
				if err != nil {
					return nil, err
				}
				as.ContentType = reconciled
				as.Representations = append(as.Representations, rep)
			case "SegmentBase":
				sb, err := p.parseSingleSegmentBase(d, t, baseURL, asSingleSegmentBase(segmentBase, periodBase))
				if err != nil {
					return nil, err
				}
				segmentBase = sb
			case "SegmentList":
				sl, err := p.parseSegmentList(d, t, baseURL, asSegmentList(segmentBase, periodBase))
				if err != nil {
					return nil, err
				}
				segmentBase = sl
			case "SegmentTemplate":
				st, err := p.parseSegmentTemplate(d, t, baseURL, asSegmentTemplate(segmentBase, periodBase))
				if err != nil {
					return nil, err
				}
				segmentBase = st
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			as.SegmentBase = segmentBase
			return as, nil
		}
	}
}

func (p *Parser) parseRepresentation(d *xml.Decoder, se xml.StartElement, baseURL string, defaults representationDefaults, inherited mpd.SegmentBase) (*mpd.Representation, []mpd.ContentProtection, error) {
	id := attr(se, "id")
	bandwidth, err := requireIntAttr(se, "bandwidth")
	if err != nil {
		return nil, nil, err
	}

	format := mpd.NewFormat(id, attrDefault(se, "mimeType", defaults.mimeType))
	format.Codecs = attrDefault(se, "codecs", defaults.codecs)
	if format.Width, err = parseIntAttr(se, "width", defaults.width); err != nil {
		return nil, nil, err
	}
	if format.Height, err = parseIntAttr(se, "height", defaults.height); err != nil {
		return nil, nil, err
	}
	if format.FrameRate, err = parseFrameRateAttr(se, defaults.frameRate); err != nil {
		return nil, nil, err
	}
	maxPlayoutRate, err := parseIntAttr(se, "maxPlayoutRate", int32(defaults.maxPlayoutRate))
	if err != nil {
		return nil, nil, err
	}
	format.MaxPlayoutRate = float64(maxPlayoutRate)
	format.AudioChannels = defaults.audioChannels
	if format.AudioSamplingRate, err = parseIntAttr(se, "audioSamplingRate", defaults.audioSamplingRate); err != nil {
		return nil, nil, err
	}
	format.Bitrate = bandwidth
	format.Language = defaults.language
	format.ContentID = p.ContentID
	// Some encoders emit the non-standard E-AC3 codec string "eac3"; the
	// RFC 6381 form is "ec-3".
	if strings.HasPrefix(format.MimeType, "audio/") && format.Codecs == "eac3" {
		format.Codecs = "ec-3"
	}

	var ownBase mpd.SegmentBase
	var protections []mpd.ContentProtection
	seenFirstBaseURL := false
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("mpdparser: reading Representation children: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "BaseURL":
				resolved, err := parseBaseURL(d, baseURL)
				if err != nil {
					return nil, nil, err
				}
				if !seenFirstBaseURL {
					baseURL = resolved
					seenFirstBaseURL = true
				}
			case "SupplementalProperty", "EssentialProperty":
				format.RoleDescriptors = append(format.RoleDescriptors, parseDescriptor(t))
				if err := d.Skip(); err != nil {
					return nil, nil, err
				}
			case "AudioChannelConfiguration":
				channels, err := parseAudioChannelConfiguration(t)
				if err != nil {
					return nil, nil, err
				}
				format.AudioChannels = channels
				if err := d.Skip(); err != nil {
					return nil, nil, err
				}
			case "ContentProtection":
				cp, err := p.parseContentProtection(d, t)
				if err != nil {
					return nil, nil, err
				}
				if cp != nil {
					protections = append(protections, *cp)
				}
			case "SegmentBase":
				sb, err := p.parseSingleSegmentBase(d, t, baseURL, asSingleSegmentBase(ownBase, inherited))
				if err != nil {
					return nil, nil, err
				}
				ownBase = sb
			case "SegmentList":
				sl, err := p.parseSegmentList(d, t, baseURL, asSegmentList(ownBase, inherited))
				if err != nil {
					return nil, nil, err
				}
				ownBase = sl
			case "SegmentTemplate":
				st, err := p.parseSegmentTemplate(d, t, baseURL, asSegmentTemplate(ownBase, inherited))
				if err != nil {
					return nil, nil, err
				}
				ownBase = st
			default:
				if err := d.Skip(); err != nil {
					return nil, nil, err
				}
			}
		case xml.EndElement:
			base := ownBase
			if base == nil {
				base = inherited
			}
			if base == nil {
				// A representation with no segment information at any level
				// is a single whole-file media segment at the base URL.
				base = mpd.NewSingleSegmentBase(baseURL, 1, 0, nil, nil,
					mpd.NewRangedURI(baseURL, "", 0, mpd.LengthUnbounded))
			}
			rep := mpd.NewRepresentation(id, -1, format, base, p.ContentID)
			return rep, protections, nil
		}
	}
}

func (p *Parser) parseContentProtection(d *xml.Decoder, se xml.StartElement) (*mpd.ContentProtection, error) {
	schemeIDURI := attr(se, "schemeIdUri")
	var uuid [16]byte
	hasUUID := false
	var data *mpd.SchemeInitData
	seenPssh := false

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("mpdparser: reading ContentProtection children: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "pssh" {
				seenPssh = true
				text, err := nextText(d)
				if err != nil {
					return nil, err
				}
				decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
				if err != nil {
					return nil, fmt.Errorf("mpdparser: decoding cenc:pssh: %w", err)
				}
				data = &mpd.SchemeInitData{MimeType: "video/mp4", Data: decoded}
				if id, ok := mpd.PsshUUID(decoded); ok {
					uuid = id
					hasUUID = true
				}
			} else {
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if seenPssh && !hasUUID {
				// A pssh box we cannot derive a system UUID from names a
				// scheme we cannot use; drop the element.
				return nil, nil
			}
			cp := mpd.NewContentProtection(schemeIDURI, uuid, hasUUID, data)
			return &cp, nil
		}
	}
}

func (p *Parser) parseSingleSegmentBase(d *xml.Decoder, se xml.StartElement, baseURL string, parent *mpd.SingleSegmentBase) (*mpd.SingleSegmentBase, error) {
	parentTimescale := int64(1)
	parentPTO := int64(0)
	var parentInit, parentIndex *mpd.RangedURI
	if parent != nil {
		parentTimescale = parent.Timescale()
		parentPTO = parent.PresentationTimeOffset()
		parentInit = parent.Initialization
		parentIndex = parent.IndexRange
	}

	timescale, err := parseLongAttr(se, "timescale", parentTimescale)
	if err != nil {
		return nil, err
	}
	pto, err := parseLongAttr(se, "presentationTimeOffset", parentPTO)
	if err != nil {
		return nil, err
	}

	indexRange := parentIndex
	if rangeText := attr(se, "indexRange"); rangeText != "" {
		start, length, err := parseRange(rangeText)
		if err != nil {
			return nil, err
		}
		indexRange = mpd.NewRangedURI(baseURL, "", start, length)
	}

	initialization := parentInit
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("mpdparser: reading SegmentBase children: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Initialization" {
				init, err := parseRangedURL(t, baseURL, "sourceURL", "range")
				if err != nil {
					return nil, err
				}
				initialization = init
				if err := d.Skip(); err != nil {
					return nil, err
				}
			} else {
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return mpd.NewSingleSegmentBase(baseURL, timescale, pto, initialization, indexRange,
				mpd.NewRangedURI(baseURL, "", 0, mpd.LengthUnbounded)), nil
		}
	}
}

func (p *Parser) parseSegmentList(d *xml.Decoder, se xml.StartElement, baseURL string, parent *mpd.SegmentList) (*mpd.SegmentList, error) {
	core, err := parseMultiSegmentCore(se, baseURL, segmentListCore(parent))
	if err != nil {
		return nil, err
	}

	var initialization *mpd.RangedURI
	var timeline []mpd.SegmentTimelineElement
	var mediaURIs []*mpd.RangedURI

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("mpdparser: reading SegmentList children: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Initialization":
				if initialization, err = parseRangedURL(t, baseURL, "sourceURL", "range"); err != nil {
					return nil, err
				}
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "SegmentTimeline":
				if timeline, err = parseSegmentTimeline(d); err != nil {
					return nil, err
				}
			case "SegmentURL":
				media, err := parseRangedURL(t, baseURL, "media", "mediaRange")
				if err != nil {
					return nil, err
				}
				mediaURIs = append(mediaURIs, media)
				if err := d.Skip(); err != nil {
					return nil, err
				}
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			core.Timeline = timeline
			if parent != nil {
				if initialization == nil {
					initialization = parent.Initialization
				}
				if mediaURIs == nil {
					mediaURIs = parent.MediaURIs
				}
			}
			return mpd.NewSegmentList(core, initialization, mediaURIs), nil
		}
	}
}

func (p *Parser) parseSegmentTemplate(d *xml.Decoder, se xml.StartElement, baseURL string, parent *mpd.SegmentTemplate) (*mpd.SegmentTemplate, error) {
	core, err := parseMultiSegmentCore(se, baseURL, segmentTemplateCore(parent))
	if err != nil {
		return nil, err
	}

	var parentMedia, parentInit *mpd.URLTemplate
	var parentStaticInit *mpd.RangedURI
	if parent != nil {
		parentMedia = parent.MediaTemplate
		parentInit = parent.InitializationTemplate
		parentStaticInit = parent.Initialization
	}
	mediaTemplate := parseURLTemplateAttr(se, "media", parentMedia)
	initTemplate := parseURLTemplateAttr(se, "initialization", parentInit)

	initialization := parentStaticInit
	var timeline []mpd.SegmentTimelineElement

	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("mpdparser: reading SegmentTemplate children: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Initialization":
				if initialization, err = parseRangedURL(t, baseURL, "sourceURL", "range"); err != nil {
					return nil, err
				}
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "SegmentTimeline":
				if timeline, err = parseSegmentTimeline(d); err != nil {
					return nil, err
				}
			default:
				if err := d.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if mediaTemplate == nil {
				return nil, fmt.Errorf("mpdparser: SegmentTemplate without media template")
			}
			core.Timeline = timeline
			return mpd.NewSegmentTemplate(core, initialization, initTemplate, mediaTemplate), nil
		}
	}
}

// parseMultiSegmentCore parses the attributes shared by SegmentList and
// SegmentTemplate, inheriting defaults from the parent's core when one is
// supplied.
func parseMultiSegmentCore(se xml.StartElement, baseURL string, parent *mpd.MultiSegmentBase) (mpd.MultiSegmentBase, error) {
	parentTimescale := int64(1)
	parentPTO := int64(0)
	parentDuration := int64(-1)
	parentStart := int32(1)
	if parent != nil {
		parentTimescale = parent.Timescale()
		parentPTO = parent.PresentationTimeOffset()
		parentDuration = parent.Duration
		parentStart = parent.StartNumber
	}

	timescale, err := parseLongAttr(se, "timescale", parentTimescale)
	if err != nil {
		return mpd.MultiSegmentBase{}, err
	}
	pto, err := parseLongAttr(se, "presentationTimeOffset", parentPTO)
	if err != nil {
		return mpd.MultiSegmentBase{}, err
	}
	duration, err := parseLongAttr(se, "duration", parentDuration)
	if err != nil {
		return mpd.MultiSegmentBase{}, err
	}
	startNumber, err := parseIntAttr(se, "startNumber", parentStart)
	if err != nil {
		return mpd.MultiSegmentBase{}, err
	}

	return mpd.NewMultiSegmentBase(baseURL, timescale, pto, startNumber, duration, nil, parent), nil
}

func parseSegmentTimeline(d *xml.Decoder) ([]mpd.SegmentTimelineElement, error) {
	var timeline []mpd.SegmentTimelineElement
	elapsed := int64(0)
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("mpdparser: reading SegmentTimeline children: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "S" {
				if elapsed, err = parseLongAttr(t, "t", elapsed); err != nil {
					return nil, err
				}
				duration, err := requireLongAttr(t, "d")
				if err != nil {
					return nil, err
				}
				repeat, err := parseIntAttr(t, "r", 0)
				if err != nil {
					return nil, err
				}
				for i := int32(0); i <= repeat; i++ {
					timeline = append(timeline, mpd.SegmentTimelineElement{StartTime: elapsed, Duration: duration})
					elapsed += duration
				}
			}
			if err := d.Skip(); err != nil {
				return nil, err
			}
		case xml.EndElement:
			return timeline, nil
		}
	}
}

func parseRangedURL(se xml.StartElement, baseURL, urlAttribute, rangeAttribute string) (*mpd.RangedURI, error) {
	urlText := attr(se, urlAttribute)
	start := int64(0)
	length := mpd.LengthUnbounded
	if rangeText := attr(se, rangeAttribute); rangeText != "" {
		var err error
		if start, length, err = parseRange(rangeText); err != nil {
			return nil, err
		}
	}
	return mpd.NewRangedURI(baseURL, urlText, start, length), nil
}

func parseAudioChannelConfiguration(se xml.StartElement) (int32, error) {
	if attr(se, "schemeIdUri") != "urn:mpeg:dash:23003:3:audio_channel_configuration:2011" {
		return -1, nil
	}
	return parseIntAttr(se, "value", -1)
}

func parseBaseURL(d *xml.Decoder, parentBaseURL string) (string, error) {
	text, err := nextText(d)
	if err != nil {
		return "", err
	}
	resolved, err := urischeme.Resolve(parentBaseURL, strings.TrimSpace(text))
	if err != nil {
		return "", fmt.Errorf("mpdparser: resolving BaseURL %q: %w", text, err)
	}
	return resolved, nil
}

func parseDescriptor(se xml.StartElement) mpd.DescriptorType {
	return mpd.DescriptorType{
		SchemeIDURI: attr(se, "schemeIdUri"),
		Value:       attr(se, "value"),
		ID:          attr(se, "id"),
	}
}

// parseRange parses an "a-b" byte range into (start, length).
func parseRange(rangeText string) (int64, int64, error) {
	dash := strings.IndexByte(rangeText, '-')
	if dash <= 0 {
		return 0, 0, fmt.Errorf("mpdparser: invalid byte range %q", rangeText)
	}
	start, err := strconv.ParseInt(rangeText[:dash], 10, 64)
	if err != nil || start < 0 {
		return 0, 0, fmt.Errorf("mpdparser: invalid byte range start %q", rangeText)
	}
	end, err := strconv.ParseInt(rangeText[dash+1:], 10, 64)
	if err != nil || end < start {
		return 0, 0, fmt.Errorf("mpdparser: invalid byte range end %q", rangeText)
	}
	return start, end - start + 1, nil
}

// Attribute helpers. An attribute that is present but malformed fails the
// containing element; an absent attribute yields its default.

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func attrDefault(se xml.StartElement, name, defaultValue string) string {
	if v := attr(se, name); v != "" {
		return v
	}
	return defaultValue
}

func parseLongAttr(se xml.StartElement, name string, defaultValue int64) (int64, error) {
	v := attr(se, name)
	if v == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("mpdparser: attribute %s=%q: %w", name, v, err)
	}
	return parsed, nil
}

func requireLongAttr(se xml.StartElement, name string) (int64, error) {
	v := attr(se, name)
	if v == "" {
		return 0, fmt.Errorf("mpdparser: missing required attribute %s on <%s>", name, se.Name.Local)
	}
	return parseLongAttr(se, name, 0)
}

func parseIntAttr(se xml.StartElement, name string, defaultValue int32) (int32, error) {
	parsed, err := parseLongAttr(se, name, int64(defaultValue))
	if err != nil {
		return 0, err
	}
	return int32(parsed), nil
}

func requireIntAttr(se xml.StartElement, name string) (int32, error) {
	parsed, err := requireLongAttr(se, name)
	if err != nil {
		return 0, err
	}
	return int32(parsed), nil
}

func parseDurationAttr(se xml.StartElement, name string, defaultValue int64) int64 {
	v := attr(se, name)
	if v == "" {
		return defaultValue
	}
	return dashtime.ParseXSDuration(v)
}

func parseDateTimeAttr(se xml.StartElement, name string, defaultValue int64) int64 {
	v := attr(se, name)
	if v == "" {
		return defaultValue
	}
	ms, err := dashtime.ParseXSDateTime(v)
	if err != nil {
		return defaultValue
	}
	return ms
}

// parseFrameRateAttr parses "30" or "30000/1001" forms.
func parseFrameRateAttr(se xml.StartElement, defaultValue float64) (float64, error) {
	v := attr(se, "frameRate")
	if v == "" {
		return defaultValue, nil
	}
	numText, denText := v, "1"
	if slash := strings.IndexByte(v, '/'); slash >= 0 {
		numText, denText = v[:slash], v[slash+1:]
	}
	num, err := strconv.ParseInt(numText, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("mpdparser: frameRate numerator %q: %w", v, err)
	}
	den, err := strconv.ParseInt(denText, 10, 32)
	if err != nil || den == 0 {
		return 0, fmt.Errorf("mpdparser: frameRate denominator %q", v)
	}
	return float64(num) / float64(den), nil
}

func parseURLTemplateAttr(se xml.StartElement, name string, defaultValue *mpd.URLTemplate) *mpd.URLTemplate {
	if v := attr(se, name); v != "" {
		return mpd.CompileURLTemplate(v)
	}
	return defaultValue
}

// nextText collects the character data up to the current element's end
// tag.
func nextText(d *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return "", fmt.Errorf("mpdparser: reading element text: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			if depth == 0 {
				b.Write(t)
			}
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return b.String(), nil
			}
			depth--
		}
	}
}

func contentTypeFromAttr(value string) mpd.ContentType {
	switch value {
	case "audio":
		return mpd.ContentTypeAudio
	case "video":
		return mpd.ContentTypeVideo
	case "text":
		return mpd.ContentTypeText
	default:
		return mpd.ContentTypeUnknown
	}
}

func contentTypeFromFormat(f mpd.Format) mpd.ContentType {
	switch f.Category() {
	case "video":
		return mpd.ContentTypeVideo
	case "audio":
		return mpd.ContentTypeAudio
	case "text":
		return mpd.ContentTypeText
	case "application":
		if f.MimeType == "application/mp4" {
			// An mp4 container with no audio or video: codecs decide
			// whether it holds text.
			if f.Codecs == "stpp" || f.Codecs == "wvtt" {
				return mpd.ContentTypeText
			}
			return mpd.ContentTypeUnknown
		}
		return mpd.ContentTypeText
	default:
		return mpd.ContentTypeUnknown
	}
}

func checkLanguageConsistency(first, second string) (string, error) {
	if first == "" {
		return second, nil
	}
	if second == "" {
		return first, nil
	}
	if first != second {
		return "", fmt.Errorf("mpdparser: inconsistent languages %q and %q", first, second)
	}
	return first, nil
}

func checkContentTypeConsistency(first, second mpd.ContentType) (mpd.ContentType, error) {
	if first == mpd.ContentTypeUnknown {
		return second, nil
	}
	if second == mpd.ContentTypeUnknown {
		return first, nil
	}
	if first != second {
		return mpd.ContentTypeUnknown, fmt.Errorf("mpdparser: inconsistent content types %s and %s", first, second)
	}
	return first, nil
}

// Parent-pointer coercions: the inherited segment base only participates
// when it is the same variant as the element being parsed.

func segmentListCore(parent *mpd.SegmentList) *mpd.MultiSegmentBase {
	if parent == nil {
		return nil
	}
	return &parent.MultiSegmentBase
}

func segmentTemplateCore(parent *mpd.SegmentTemplate) *mpd.MultiSegmentBase {
	if parent == nil {
		return nil
	}
	return &parent.MultiSegmentBase
}

func asSingleSegmentBase(bases ...mpd.SegmentBase) *mpd.SingleSegmentBase {
	for _, b := range bases {
		if ssb, ok := b.(*mpd.SingleSegmentBase); ok && ssb != nil {
			return ssb
		}
	}
	return nil
}

func asSegmentList(bases ...mpd.SegmentBase) *mpd.SegmentList {
	for _, b := range bases {
		if sl, ok := b.(*mpd.SegmentList); ok && sl != nil {
			return sl
		}
	}
	return nil
}

func asSegmentTemplate(bases ...mpd.SegmentBase) *mpd.SegmentTemplate {
	for _, b := range bases {
		if st, ok := b.(*mpd.SegmentTemplate); ok && st != nil {
			return st
		}
	}
	return nil
}
