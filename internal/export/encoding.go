package export

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/rewired-gh/labcal/internal/models"
)

// Encoding is the character encoding of text exports.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF8BOM Encoding = "utf-8-sig"
	EncodingCP1251  Encoding = "cp1251"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseEncoding validates an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(s); e {
	case EncodingUTF8, EncodingUTF8BOM, EncodingCP1251:
		return e, nil
	}
	return "", fmt.Errorf("%w: unknown encoding %q", models.ErrInvalidInput, s)
}

// Encode converts UTF-8 text to the encoding. Text that cp1251 cannot
// represent is an error.
func (e Encoding) Encode(data []byte) ([]byte, error) {
	switch e {
	case EncodingUTF8:
		return data, nil
	case EncodingUTF8BOM:
		out := make([]byte, 0, len(utf8BOM)+len(data))
		out = append(out, utf8BOM...)
		return append(out, data...), nil
	case EncodingCP1251:
		out, err := charmap.Windows1251.NewEncoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode as cp1251: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown encoding %q", models.ErrInvalidInput, string(e))
}
