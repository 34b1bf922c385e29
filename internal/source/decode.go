// Package source enumerates checkpoint log files and decodes them to text.
package source

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Encoding names reported by Decode.
const (
	EncodingUTF8  = "utf-8"
	EncodingEUCKR = "euc-kr"
	EncodingCP949 = "cp949"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw log bytes to text. It tries UTF-8, then strict EUC-KR
// (KS X 1001 byte ranges), then CP949 with undecodable bytes replaced by
// U+FFFD. It never fails; the second result names the encoding that won.
func Decode(raw []byte) (string, string) {
	if b := bytes.TrimPrefix(raw, utf8BOM); utf8.Valid(b) {
		return string(b), EncodingUTF8
	}

	if isStrictEUCKR(raw) {
		if text, err := decodeKorean(raw); err == nil && !strings.ContainsRune(text, utf8.RuneError) {
			return text, EncodingEUCKR
		}
	}

	// CP949 is a superset of EUC-KR; x/text's EUCKR decoder implements it and
	// substitutes RuneError for invalid sequences.
	text, err := decodeKorean(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), EncodingCP949
	}
	return text, EncodingCP949
}

// DecodeName decodes a file name that is not valid UTF-8 (zip archives made
// on Korean Windows store CP949 names).
func DecodeName(name string) string {
	if utf8.ValidString(name) {
		return name
	}
	text, _ := Decode([]byte(name))
	return text
}

func decodeKorean(raw []byte) (string, error) {
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// isStrictEUCKR reports whether raw only uses ASCII and two-byte KS X 1001
// sequences (lead and trail both in 0xA1-0xFE).
func isStrictEUCKR(raw []byte) bool {
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c < 0x80 {
			continue
		}
		if c < 0xA1 || c > 0xFE || i+1 >= len(raw) {
			return false
		}
		t := raw[i+1]
		if t < 0xA1 || t > 0xFE {
			return false
		}
		i++
	}
	return true
}
