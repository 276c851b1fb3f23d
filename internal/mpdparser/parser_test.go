package mpdparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamcore/ndash/internal/mpd"
)

const staticManifest = `<?xml version="1.0" encoding="utf-8"?>
<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" type="static"
     mediaPresentationDuration="PT30S" minBufferTime="PT2S">
  <BaseURL>http://cdn.example.com/content/</BaseURL>
  <Period id="p0">
    <AdaptationSet id="0" contentType="video" mimeType="video/mp4" maxPlayoutRate="1">
      <ContentProtection schemeIdUri="urn:uuid:edef8ba9-79d6-4ace-a3c8-27dcd51d21ed"/>
      <SegmentTemplate timescale="1000" duration="5000" startNumber="1"
          initialization="init-$RepresentationID$.mp4"
          media="chunk-$RepresentationID$-$Number%05d$.m4s"/>
      <Representation id="video-1" bandwidth="1000000" codecs="avc1.4d401f" width="1280" height="720" frameRate="30000/1001"/>
      <Representation id="video-2" bandwidth="3000000" codecs="avc1.640028" width="1920" height="1080"/>
    </AdaptationSet>
    <AdaptationSet id="1" contentType="audio" mimeType="audio/mp4" lang="en">
      <AudioChannelConfiguration schemeIdUri="urn:mpeg:dash:23003:3:audio_channel_configuration:2011" value="2"/>
      <SegmentList timescale="1000" duration="5000">
        <Initialization sourceURL="audio-init.mp4"/>
        <SegmentURL media="audio-1.mp4"/>
        <SegmentURL media="audio-2.mp4"/>
        <SegmentURL media="audio-3.mp4"/>
        <SegmentURL media="audio-4.mp4"/>
        <SegmentURL media="audio-5.mp4"/>
        <SegmentURL media="audio-6.mp4"/>
      </SegmentList>
      <Representation id="audio-1" bandwidth="128000" codecs="eac3"/>
    </AdaptationSet>
  </Period>
</MPD>`

func TestParseStaticManifest(t *testing.T) {
	p := &Parser{}
	m, err := p.Parse("http://cdn.example.com/manifest.mpd", []byte(staticManifest))
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.False(t, m.Dynamic)
	assert.EqualValues(t, 30000, m.DurationMs)
	assert.EqualValues(t, 2000, m.MinBufferTimeMs)
	require.Len(t, m.Periods, 1)

	period := m.Periods[0]
	assert.Equal(t, "p0", period.ID)
	assert.EqualValues(t, 0, period.StartMs)
	require.Len(t, period.AdaptationSets, 2)

	video := period.AdaptationSets[0]
	assert.Equal(t, mpd.ContentTypeVideo, video.ContentType)
	require.Len(t, video.Representations, 2)
	require.Len(t, video.ContentProtections, 1)
	assert.Equal(t, "urn:uuid:edef8ba9-79d6-4ace-a3c8-27dcd51d21ed", video.ContentProtections[0].SchemeIDURI)
	assert.False(t, video.ContentProtections[0].HasUUID)

	rep := video.Representations[0]
	assert.Equal(t, "video-1", rep.ID)
	assert.EqualValues(t, 1000000, rep.Format.Bitrate)
	assert.EqualValues(t, 1280, rep.Format.Width)
	assert.InDelta(t, 29.97, rep.Format.FrameRate, 0.01)

	st, ok := rep.SegmentBase.(*mpd.SegmentTemplate)
	require.True(t, ok, "video representation should inherit the SegmentTemplate")
	init := st.GetInitialization("video-1", 1000000)
	require.NotNil(t, init)
	uri, err := init.ResolveURI()
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example.com/content/init-video-1.mp4", uri)

	seg := st.GetSegmentURI("video-1", 1000000, 3)
	require.NotNil(t, seg)
	uri, err = seg.ResolveURI()
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example.com/content/chunk-video-1-00003.m4s", uri)

	// 30s period at 5s per segment.
	assert.EqualValues(t, 1, st.FirstSegmentNum())
	assert.EqualValues(t, 6, st.LastSegmentNum(30000000))

	audio := period.AdaptationSets[1]
	assert.Equal(t, mpd.ContentTypeAudio, audio.ContentType)
	assert.Equal(t, "en", audio.Language)
	require.Len(t, audio.Representations, 1)
	audioRep := audio.Representations[0]
	assert.EqualValues(t, 2, audioRep.Format.AudioChannels)
	// Non-standard eac3 codec string is normalized.
	assert.Equal(t, "ec-3", audioRep.Format.Codecs)

	sl, ok := audioRep.SegmentBase.(*mpd.SegmentList)
	require.True(t, ok)
	assert.EqualValues(t, 1, sl.FirstSegmentNum())
	assert.EqualValues(t, 6, sl.LastSegmentNum(0))
	media := sl.GetSegmentURI(2)
	require.NotNil(t, media)
	uri, err = media.ResolveURI()
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example.com/content/audio-2.mp4", uri)
}

func TestParseDynamicManifestDropsEarlyAccessPeriods(t *testing.T) {
	manifest := `<MPD type="dynamic" minimumUpdatePeriod="PT5S" minBufferTime="PT2S">
  <Period id="live" start="PT0S">
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <SegmentTemplate timescale="1" duration="5" media="v-$Number$.m4s"/>
      <Representation id="v" bandwidth="500000"/>
    </AdaptationSet>
  </Period>
  <Period id="early">
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <SegmentTemplate timescale="1" duration="5" media="e-$Number$.m4s"/>
      <Representation id="e" bandwidth="500000"/>
    </AdaptationSet>
  </Period>
</MPD>`
	p := &Parser{}
	m, err := p.Parse("http://host/live.mpd", []byte(manifest))
	require.NoError(t, err)

	assert.True(t, m.Dynamic)
	assert.EqualValues(t, 5000, m.MinUpdatePeriodMs)
	require.Len(t, m.Periods, 1)
	assert.Equal(t, "live", m.Periods[0].ID)
}

func TestParseStaticPeriodInheritsPreviousEnd(t *testing.T) {
	manifest := `<MPD type="static" minBufferTime="PT2S">
  <Period id="a" duration="PT10S">
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <SegmentTemplate timescale="1" duration="5" media="a-$Number$.m4s"/>
      <Representation id="a" bandwidth="1"/>
    </AdaptationSet>
  </Period>
  <Period id="b" duration="PT20S">
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <SegmentTemplate timescale="1" duration="5" media="b-$Number$.m4s"/>
      <Representation id="b" bandwidth="1"/>
    </AdaptationSet>
  </Period>
</MPD>`
	p := &Parser{}
	m, err := p.Parse("http://host/x.mpd", []byte(manifest))
	require.NoError(t, err)

	require.Len(t, m.Periods, 2)
	assert.EqualValues(t, 0, m.Periods[0].StartMs)
	assert.EqualValues(t, 10000, m.Periods[1].StartMs)
	// Total duration falls out of the final period's end.
	assert.EqualValues(t, 30000, m.DurationMs)
	assert.EqualValues(t, 10000, m.PeriodDurationMs(0))
	assert.EqualValues(t, 20000, m.PeriodDurationMs(1))
}

func TestParseRejectsMalformedAttribute(t *testing.T) {
	manifest := `<MPD type="static" mediaPresentationDuration="PT10S" minBufferTime="PT2S">
  <Period id="p">
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <SegmentTemplate timescale="not-a-number" duration="5" media="a-$Number$.m4s"/>
      <Representation id="a" bandwidth="1"/>
    </AdaptationSet>
  </Period>
</MPD>`
	p := &Parser{}
	_, err := p.Parse("http://host/x.mpd", []byte(manifest))
	assert.Error(t, err)
}

func TestParseRejectsMissingBandwidth(t *testing.T) {
	manifest := `<MPD type="static" mediaPresentationDuration="PT10S" minBufferTime="PT2S">
  <Period id="p">
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <SegmentTemplate timescale="1" duration="5" media="a-$Number$.m4s"/>
      <Representation id="a"/>
    </AdaptationSet>
  </Period>
</MPD>`
	p := &Parser{}
	_, err := p.Parse("http://host/x.mpd", []byte(manifest))
	assert.Error(t, err)
}

func TestParseRejectsContentTypeMismatch(t *testing.T) {
	manifest := `<MPD type="static" mediaPresentationDuration="PT10S" minBufferTime="PT2S">
  <Period id="p">
    <AdaptationSet contentType="video">
      <SegmentTemplate timescale="1" duration="5" media="a-$Number$.m4s"/>
      <Representation id="a" bandwidth="1" mimeType="audio/mp4"/>
    </AdaptationSet>
  </Period>
</MPD>`
	p := &Parser{}
	_, err := p.Parse("http://host/x.mpd", []byte(manifest))
	assert.Error(t, err)
}

func TestParseRejectsInconsistentLanguage(t *testing.T) {
	manifest := `<MPD type="static" mediaPresentationDuration="PT10S" minBufferTime="PT2S">
  <Period id="p">
    <AdaptationSet contentType="audio" mimeType="audio/mp4" lang="en">
      <ContentComponent lang="fr"/>
      <SegmentTemplate timescale="1" duration="5" media="a-$Number$.m4s"/>
      <Representation id="a" bandwidth="1"/>
    </AdaptationSet>
  </Period>
</MPD>`
	p := &Parser{}
	_, err := p.Parse("http://host/x.mpd", []byte(manifest))
	assert.Error(t, err)
}

func TestParseNoPeriodsFails(t *testing.T) {
	p := &Parser{}
	_, err := p.Parse("http://host/x.mpd", []byte(`<MPD type="static" mediaPresentationDuration="PT1S" minBufferTime="PT1S"></MPD>`))
	assert.Error(t, err)
}

func TestParseSelfIndexedRepresentation(t *testing.T) {
	manifest := `<MPD type="static" mediaPresentationDuration="PT30S" minBufferTime="PT2S">
  <Period id="p">
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <Representation id="v" bandwidth="1000000">
        <BaseURL>http://host/media.mp4</BaseURL>
        <SegmentBase indexRange="800-1199">
          <Initialization range="0-799"/>
        </SegmentBase>
      </Representation>
    </AdaptationSet>
  </Period>
</MPD>`
	p := &Parser{}
	m, err := p.Parse("http://host/x.mpd", []byte(manifest))
	require.NoError(t, err)

	rep := m.Periods[0].AdaptationSets[0].Representations[0]
	require.True(t, rep.IsSelfIndexed())

	ssb := rep.SegmentBase.(*mpd.SingleSegmentBase)
	require.NotNil(t, ssb.IndexRange)
	assert.EqualValues(t, 800, ssb.IndexRange.Start())
	assert.EqualValues(t, 400, ssb.IndexRange.Length())
	require.NotNil(t, ssb.Initialization)
	assert.EqualValues(t, 0, ssb.Initialization.Start())
	assert.EqualValues(t, 800, ssb.Initialization.Length())
}
