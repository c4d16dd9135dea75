package reporter

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PayloadFormat selects how UDP payload bytes are rendered.
type PayloadFormat string

const (
	// PayloadAuto renders text when most of the payload is printable UTF-8
	// and hex otherwise.
	PayloadAuto PayloadFormat = "auto"
	PayloadText PayloadFormat = "text"
	PayloadHex  PayloadFormat = "hex"
)

func ParsePayloadFormat(s string) (PayloadFormat, error) {
	switch f := PayloadFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return PayloadAuto, nil
	case PayloadAuto, PayloadText, PayloadHex:
		return f, nil
	}
	return "", fmt.Errorf("reporter: unknown payload format %q", s)
}

// Render formats b. Text is quoted with invalid UTF-8 replaced by U+FFFD.
func (f PayloadFormat) Render(b []byte) string {
	switch f {
	case PayloadHex:
		return hex.EncodeToString(b)
	case PayloadText:
		return quoteLossy(b)
	default:
		if mostlyText(b) {
			return quoteLossy(b)
		}
		return hex.EncodeToString(b)
	}
}

func quoteLossy(b []byte) string {
	return strconv.Quote(strings.ToValidUTF8(string(b), "\uFFFD"))
}

func mostlyText(b []byte) bool {
	var text, other int
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		b = b[size:]
		if r != utf8.RuneError && (unicode.IsPrint(r) || unicode.IsSpace(r)) {
			text++
		} else {
			other++
		}
	}
	return other*2 <= text
}
