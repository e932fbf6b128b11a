// Package textenc normalizes file bytes into UTF-8 text. It detects
// byte order marks, transcodes UTF-16 input, and strips the UTF-8 BOM.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// ErrInvalidUTF8 is returned for input that is neither UTF-16 nor
// valid UTF-8.
var ErrInvalidUTF8 = errors.New("textenc: input is not valid UTF-8")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// Decode converts raw file bytes to a UTF-8 string. UTF-16 input is
// recognized by its BOM and transcoded; a UTF-8 BOM is stripped.
func Decode(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeUTF16(data, unicode.BigEndian)
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeUTF16(data, unicode.LittleEndian)
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
	}

	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}

func decodeUTF16(data []byte, endian unicode.Endianness) (string, error) {
	dec := unicode.UTF16(endian, unicode.UseBOM).NewDecoder()
	out, err := dec.Bytes(data)
	if err != nil {
		return "", fmt.Errorf("textenc: decoding UTF-16: %w", err)
	}
	return string(out), nil
}
