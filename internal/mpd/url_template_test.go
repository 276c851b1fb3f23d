package mpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildURISubstitutesPlaceholders(t *testing.T) {
	tmpl := CompileURLTemplate("chunk-$RepresentationID$-$Number%05d$.m4s")
	assert.Equal(t, "chunk-video-1-00042.m4s", tmpl.BuildURI("video-1", 42, 0, 0))
}

func TestBuildURIAllIdentifiers(t *testing.T) {
	tmpl := CompileURLTemplate("$RepresentationID$/$Bandwidth$/$Time$/$Number$")
	assert.Equal(t, "rep/1500000/90000/7", tmpl.BuildURI("rep", 7, 1500000, 90000))
}

func TestBuildURIEscapedDollar(t *testing.T) {
	tmpl := CompileURLTemplate("cost$$-$Number$")
	assert.Equal(t, "cost$-3", tmpl.BuildURI("x", 3, 0, 0))
}

func TestBuildURIUnknownIdentifierPreserved(t *testing.T) {
	tmpl := CompileURLTemplate("seg-$Bogus$-$Number$")
	assert.Equal(t, "seg-$Bogus$-1", tmpl.BuildURI("x", 1, 0, 0))
}

func TestBuildURIWidthPadding(t *testing.T) {
	tmpl := CompileURLTemplate("$Time%08d$.m4s")
	assert.Equal(t, "00090000.m4s", tmpl.BuildURI("x", 0, 0, 90000))

	wide := CompileURLTemplate("$Number%02d$")
	assert.Equal(t, "123", wide.BuildURI("x", 123, 0, 0))
}

func TestBuildURINoPlaceholders(t *testing.T) {
	tmpl := CompileURLTemplate("init.mp4")
	assert.Equal(t, "init.mp4", tmpl.BuildURI("x", 0, 0, 0))
}
