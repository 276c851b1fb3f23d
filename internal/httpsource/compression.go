package httpsource

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
)

const acceptEncodingHeader = "gzip, deflate, br"

// decodeBody wraps resp.Body with the decoder matching its
// Content-Encoding. Whole-resource requests advertise gzip/deflate/br and
// manifests routinely arrive compressed; byte-range requests advertise no
// encoding (offsets into a compressed stream are meaningless). The decoder
// is chosen from the response's Content-Encoding alone, so a range
// response that arrives encoded anyway is decoded as well.
func decodeBody(resp *http.Response) (io.ReadCloser, bool, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, false, err
		}
		return &decodedBody{decoder: reader, underlying: resp.Body}, true, nil
	case "deflate":
		return &decodedBody{decoder: flate.NewReader(resp.Body), underlying: resp.Body}, true, nil
	case "br":
		return &decodedBody{decoder: io.NopCloser(brotli.NewReader(resp.Body)), underlying: resp.Body}, true, nil
	default:
		return resp.Body, false, nil
	}
}

// decodedBody closes both the decoder and the raw body beneath it.
type decodedBody struct {
	decoder    io.ReadCloser
	underlying io.ReadCloser
}

func (d *decodedBody) Read(p []byte) (int, error) { return d.decoder.Read(p) }

func (d *decodedBody) Close() error {
	derr := d.decoder.Close()
	uerr := d.underlying.Close()
	if derr != nil {
		return derr
	}
	return uerr
}
