package protocol

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// Wire text is ISO-8859-1: one byte per character, the byte being the code
// point. Code points above 255 cannot be sent and are rejected at encode time.

// ValidateText reports whether s can be sent as wire text.
func ValidateText(s string) error {
	_, err := encodeText(s)
	return err
}

func encodeText(s string) ([]byte, error) {
	if isASCII(s) {
		return []byte(s), nil
	}
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnencodableText, s)
	}
	return b, nil
}

func decodeText(b []byte) string {
	if isASCII(string(b)) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		runes := make([]rune, len(b))
		for i, c := range b {
			runes[i] = rune(c)
		}
		return string(runes)
	}
	return string(out)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
