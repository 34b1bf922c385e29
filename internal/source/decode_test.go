package source

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
)

func eucKR(t *testing.T, s string) []byte {
	t.Helper()
	b, err := korean.EUCKR.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestDecode(t *testing.T) {
	t.Run("utf-8 with bom", func(t *testing.T) {
		raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("차량번호: 12가3456")...)
		text, enc := Decode(raw)
		assert.Equal(t, "차량번호: 12가3456", text)
		assert.Equal(t, EncodingUTF8, enc)
	})

	t.Run("plain ascii", func(t *testing.T) {
		text, enc := Decode([]byte("Plate=AB1234"))
		assert.Equal(t, "Plate=AB1234", text)
		assert.Equal(t, EncodingUTF8, enc)
	})

	t.Run("euc-kr", func(t *testing.T) {
		text, enc := Decode(eucKR(t, "[24-03-15 08:00:00.000] 차량번호: 12가3456 속도: 60"))
		assert.Equal(t, "[24-03-15 08:00:00.000] 차량번호: 12가3456 속도: 60", text)
		assert.Equal(t, EncodingEUCKR, enc)
	})

	t.Run("cp949 extension syllable", func(t *testing.T) {
		// U+B620 is outside KS X 1001
		text, enc := Decode(eucKR(t, "차량번호: 12똠3456"))
		assert.Equal(t, "차량번호: 12똠3456", text)
		assert.Equal(t, EncodingCP949, enc)
	})

	t.Run("undecodable bytes are replaced", func(t *testing.T) {
		raw := []byte{'a', 0x80, 0xFF, 'b'}
		text, enc := Decode(raw)
		assert.Equal(t, EncodingCP949, enc)
		assert.True(t, utf8.ValidString(text))
		assert.Contains(t, text, "a")
		assert.Contains(t, text, "b")
		assert.Contains(t, text, string(utf8.RuneError))
	})

	t.Run("empty input", func(t *testing.T) {
		text, enc := Decode(nil)
		assert.Empty(t, text)
		assert.Equal(t, EncodingUTF8, enc)
	})
}

func TestDecodeName(t *testing.T) {
	assert.Equal(t, "START_2024031508.txt", DecodeName("START_2024031508.txt"))

	raw := string(eucKR(t, "시점_2024031508.txt"))
	assert.Equal(t, "시점_2024031508.txt", DecodeName(raw))
}
