package util

import (
	"encoding/base64"
	"net/http"
	"strings"
)

func isJPEG(b []byte) bool { return len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 }

func isPNG(b []byte) bool {
	return len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A
}

// SniffMimeForOCR returns the short type names Yandex Vision expects.
func SniffMimeForOCR(b []byte) string {
	switch {
	case isJPEG(b):
		return "JPEG"
	case isPNG(b):
		return "PNG"
	}
	return ""
}

func SniffMimeHTTP(b []byte) string {
	switch {
	case isJPEG(b):
		return "image/jpeg"
	case isPNG(b):
		return "image/png"
	case len(b) > 0:
		return http.DetectContentType(b)
	}
	return "application/octet-stream"
}

func MakeDataURL(mime, b64 string) string {
	return "data:" + mime + ";base64," + b64
}

// ImageDataURL encodes raw image bytes as a data URL with a sniffed MIME type.
func ImageDataURL(data []byte) string {
	return MakeDataURL(SniffMimeHTTP(data), base64.StdEncoding.EncodeToString(data))
}

// DecodeBase64MaybeDataURL decodes base64; for a data URL the MIME from the
// prefix is returned as well.
func DecodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hintMIME string
	if strings.HasPrefix(s, "data:") {
		// data:<mime>;base64,<payload>
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hintMIME = meta[:semi]
			} else {
				hintMIME = meta
			}
			s = s[idx+1:]
		}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, hintMIME, nil
	}
	if b2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
		return b2, hintMIME, nil
	}
	return nil, "", err
}
