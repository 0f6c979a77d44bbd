package imaging

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vincent-petithory/dataurl"
)

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

// EncodeUpload wraps raw upload bytes in a base64 data URI. A missing or
// generic content type is replaced by one sniffed from the bytes.
func EncodeUpload(data []byte, contentType string) string {
	mt := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "" || !strings.HasPrefix(mt, "image/") {
		mt = mimetype.Detect(data).String()
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
	}
	return dataurl.New(data, mt).String()
}

// sourceMIME returns the image type declared by the data URI, falling back
// to content sniffing when the declaration is absent or not an image.
func sourceMIME(du *dataurl.DataURL) string {
	mt := strings.ToLower(du.MediaType.ContentType())
	switch mt {
	case "image/jpg", "image/pjpeg":
		return MIMEJPEG
	}
	if strings.HasPrefix(mt, "image/") {
		return mt
	}
	sniffed := mimetype.Detect(du.Data).String()
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}

func toDataURI(data []byte, mime string) string {
	return dataurl.New(data, mime).String()
}

// PayloadSize is the decoded byte size of a data URI, or the length of the
// string itself when it does not parse.
func PayloadSize(dataURI string) int64 {
	du, err := dataurl.DecodeString(dataURI)
	if err != nil {
		return int64(len(dataURI))
	}
	return int64(len(du.Data))
}
