package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path with size bytes of filler, making parent directories
// as needed. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	writeFixture(t, path, bytes.Repeat([]byte{'x'}, int(size)))
}

// WriteFakeMedia creates path as a minimal RIFF/WAVE file (16kHz mono PCM)
// zero-padded to size bytes. The payload is silence, not decodable speech; it
// only needs to look like media to code inspecting names and sizes.
func WriteFakeMedia(t testing.TB, path string, size int64) {
	t.Helper()

	payload := make([]byte, 0, 44)
	payload = append(payload, "RIFF"...)
	payload = le32(payload, 36)
	payload = append(payload, "WAVEfmt "...)
	payload = le32(payload, 16)
	payload = le16(payload, 1) // PCM
	payload = le16(payload, 1) // mono
	payload = le32(payload, 16000)
	payload = le32(payload, 32000)
	payload = le16(payload, 2)
	payload = le16(payload, 16)
	payload = append(payload, "data"...)
	payload = le32(payload, 0)

	for int64(len(payload)) < size {
		payload = append(payload, 0)
	}
	writeFixture(t, path, payload)
}

func le16(b []byte, v uint16) []byte { return append(b, byte(v), byte(v>>8)) }

func le32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func writeFixture(t testing.TB, path string, payload []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
