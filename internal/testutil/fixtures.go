package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
)

// CompactLine formats one compact-grammar log line.
func CompactLine(ts time.Time, plate string) string {
	return fmt.Sprintf("[%s:%03d] CAM01 Detect Plate=%s Conf=98\n",
		ts.Format("06-01-02 15:04:05"), ts.Nanosecond()/int(time.Millisecond), plate)
}

// VerboseLine formats one verbose-grammar log line. A negative speed omits the field.
func VerboseLine(ts time.Time, plate string, speed float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s.%03d] 검지 차량번호: %s", ts.Format("06-01-02 15:04:05"), ts.Nanosecond()/int(time.Millisecond), plate)
	if speed >= 0 {
		fmt.Fprintf(&b, " 속도: %g", speed)
	}
	b.WriteString("\n")
	return b.String()
}

// ZipArchive builds an in-memory zip archive of name -> content.
func ZipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip member %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip member %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}
