package saildocs

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// decode reverses Encode the way the receiving device does: base64 then zlib.
func decode(t *testing.T, encoded string) []byte {
	t.Helper()
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("base64 decode: %v", err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("zlib reader: %v", err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("zlib read: %v", err)
	}
	return data
}

func TestEncodeRoundTrip(t *testing.T) {
	payload := []byte("GRIB\x00\x01\x02 synthetic binary \xff\xfe payload")
	encoded, err := Encode(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := decode(t, encoded); !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: %v", got)
	}
}

func TestEncodeProducesPrintableText(t *testing.T) {
	encoded, err := Encode([]byte{0x00, 0xff, 0x10, 0x80})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 0; i < len(encoded); i++ {
		c := encoded[i]
		if c < 0x20 || c > 0x7e {
			t.Fatalf("non-printable byte %#x at %d", c, i)
		}
	}
}

func TestEncodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.grb")
	payload := []byte("GRIB test file contents")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	encoded, err := EncodeFile(path)
	if err != nil {
		t.Fatalf("encode file: %v", err)
	}
	if got := decode(t, encoded); !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: %v", got)
	}
}

func TestEncodeFileMissing(t *testing.T) {
	if _, err := EncodeFile(filepath.Join(t.TempDir(), "absent.grb")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
