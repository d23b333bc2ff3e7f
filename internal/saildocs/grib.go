package saildocs

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"os"
)

// Encode compresses a GRIB binary with zlib and base64-encodes the result so
// the chunked transport only carries printable characters. The receiving
// device reverses both steps, so the stream format here is load-bearing.
func Encode(data []byte) (string, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return "", fmt.Errorf("compress grib: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress grib: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodeFile reads and encodes the GRIB file at path.
func EncodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read grib file: %w", err)
	}
	return Encode(data)
}
