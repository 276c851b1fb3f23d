package mpd

import (
	"bytes"

	"github.com/abema/go-mp4"
)

// PsshUUID parses a full ISOBMFF 'pssh' box (as carried base64-encoded
// inside a DASH <cenc:pssh> element) and returns its SystemID, the DRM
// system UUID. It uses the same box-structure reader the extractor layer
// uses for sidx scanning.
func PsshUUID(box []byte) ([16]byte, bool) {
	var uuid [16]byte
	var found bool

	_, err := mp4.ReadBoxStructure(bytes.NewReader(box), func(h *mp4.ReadHandle) (interface{}, error) {
		if h.BoxInfo.Type != mp4.BoxTypePssh() {
			return nil, nil
		}
		payload, _, err := h.ReadPayload()
		if err != nil {
			return nil, err
		}
		pssh, ok := payload.(*mp4.Pssh)
		if !ok {
			return nil, nil
		}
		uuid = pssh.SystemID
		found = true
		return nil, nil
	})
	if err != nil {
		return uuid, false
	}
	return uuid, found
}
