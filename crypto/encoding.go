package crypto

import "encoding/base64"

// Onion layers travel as text. Every binary field is encoded with padded
// standard base64 so a fixed-size field always has a fixed encoded length.
var textEncoding = base64.StdEncoding

// EncodedLen returns the text length of n raw bytes.
func EncodedLen(n int) int {
	return textEncoding.EncodedLen(n)
}

// EncodeText encodes raw bytes as text.
func EncodeText(raw []byte) string {
	return textEncoding.EncodeToString(raw)
}

// AppendText appends the text encoding of raw to dst.
func AppendText(dst, raw []byte) []byte {
	return textEncoding.AppendEncode(dst, raw)
}

// DecodeText decodes text produced by EncodeText.
func DecodeText(text string) ([]byte, error) {
	return textEncoding.DecodeString(text)
}
