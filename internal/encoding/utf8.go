// Package encoding normalises uploaded plain-text templates to UTF-8.
package encoding

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decoders maps chardet charset names onto decoders. Anything unknown is
// decoded as Windows-1252, the usual encoding of legacy office text exports.
var decoders = map[string]encoding.Encoding{
	"ISO-8859-1":   charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"ISO-8859-15":  charmap.ISO8859_15,
	"ISO-8859-9":   charmap.ISO8859_9,
}

// ToUTF8 decodes content to UTF-8 and reports the charset it was read as.
//
// Detection order:
//  1. BOM (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. Valid UTF-8 is returned as-is
//  3. Heuristic detection via chardet
//  4. Fallback to Windows-1252
func ToUTF8(content []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return content[len(bomUTF8):], "UTF-8", nil
	case bytes.HasPrefix(content, bomUTF16LE):
		return decode(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), content, "UTF-16LE")
	case bytes.HasPrefix(content, bomUTF16BE):
		return decode(unicode.UTF16(unicode.BigEndian, unicode.UseBOM), content, "UTF-16BE")
	case utf8.Valid(content):
		return content, "UTF-8", nil
	}

	if result, err := chardet.NewTextDetector().DetectBest(content); err == nil {
		if enc, ok := decoders[result.Charset]; ok {
			return decode(enc, content, result.Charset)
		}
	}

	return decode(charmap.Windows1252, content, "windows-1252")
}

func decode(enc encoding.Encoding, content []byte, name string) ([]byte, string, error) {
	out, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s: %w", name, err)
	}

	return out, name, nil
}
