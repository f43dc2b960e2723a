package ingest

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func testService() *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(logger)
}

func TestStoreCollisions(t *testing.T) {
	svc := testService()
	dir := t.TempDir()

	expected := []string{"track.mp3", "track_1.mp3", "track_2.mp3"}
	for i, want := range expected {
		content := strings.Repeat("x", i+1)
		path, err := svc.Store(strings.NewReader(content), dir, "track.mp3")
		if err != nil {
			t.Fatalf("Failed to store upload %d: %v", i, err)
		}
		if filepath.Base(path) != want {
			t.Errorf("Expected stored name %s, got %s", want, filepath.Base(path))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read stored file: %v", err)
		}
		if string(data) != content {
			t.Errorf("Expected content %q, got %q", content, string(data))
		}
	}
}

func TestStoreSanitizesFilename(t *testing.T) {
	svc := testService()
	dir := t.TempDir()

	path, err := svc.Store(strings.NewReader("data"), dir, "../../escape.mp3")
	if err != nil {
		t.Fatalf("Failed to store upload: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("Expected file inside %s, got %s", dir, path)
	}
	if filepath.Base(path) != "escape.mp3" {
		t.Errorf("Expected name escape.mp3, got %s", filepath.Base(path))
	}
}

func TestDelete(t *testing.T) {
	svc := testService()
	dir := t.TempDir()

	path, err := svc.Store(strings.NewReader("data"), dir, "gone.mp3")
	if err != nil {
		t.Fatalf("Failed to store upload: %v", err)
	}

	if !svc.Delete(path) {
		t.Error("Expected delete of existing file to report true")
	}
	if svc.Delete(path) {
		t.Error("Expected delete of missing file to report false")
	}
}

func TestContentType(t *testing.T) {
	svc := testService()

	cases := map[string]string{
		"mp3":  "audio/mpeg",
		"MP3":  "audio/mpeg",
		"ogg":  "audio/ogg",
		"wav":  "audio/wav",
		"flac": "audio/flac",
		"xyz":  "audio/mpeg",
	}
	for fileType, want := range cases {
		if got := svc.ContentType(fileType); got != want {
			t.Errorf("Expected content type %s for %s, got %s", want, fileType, got)
		}
	}
}

// writeWAV produces a canonical PCM wav file with the given amount of audio.
func writeWAV(t *testing.T, path string, sampleRate, channels, bitDepth, seconds int) {
	t.Helper()

	bytesPerFrame := channels * bitDepth / 8
	dataLen := sampleRate * bytesPerFrame * seconds

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*bytesPerFrame))
	binary.Write(&buf, binary.LittleEndian, uint16(bytesPerFrame))
	binary.Write(&buf, binary.LittleEndian, uint16(bitDepth))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write wav fixture: %v", err)
	}
}

func TestExtractMetadataWAV(t *testing.T) {
	svc := testService()
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 44100, 1, 16, 2)

	meta := svc.ExtractMetadata(path)
	if meta.Err != "" {
		t.Fatalf("Expected clean extraction, got error %q", meta.Err)
	}
	if meta.Format != "wav" {
		t.Errorf("Expected format wav, got %s", meta.Format)
	}
	if meta.Duration == nil {
		t.Fatal("Expected a duration for a valid wav file")
	}
	if *meta.Duration < 1.9 || *meta.Duration > 2.1 {
		t.Errorf("Expected duration near 2s, got %f", *meta.Duration)
	}
	if meta.Bitrate == nil || *meta.Bitrate != 44100*16 {
		t.Errorf("Expected PCM bitrate %d, got %v", 44100*16, meta.Bitrate)
	}
	if meta.FileSize == 0 {
		t.Error("Expected a non-zero file size")
	}
}

func TestExtractMetadataCorruptFile(t *testing.T) {
	svc := testService()
	path := filepath.Join(t.TempDir(), "garbage.mp3")
	if err := os.WriteFile(path, []byte("this is not audio"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	meta := svc.ExtractMetadata(path)
	if meta.Duration != nil {
		t.Errorf("Expected nil duration for corrupt file, got %f", *meta.Duration)
	}
	if meta.Bitrate != nil {
		t.Error("Expected nil bitrate for corrupt file")
	}
	if meta.Err == "" {
		t.Error("Expected the extraction error to be recorded")
	}
	if meta.Format != "mp3" {
		t.Errorf("Expected format mp3, got %s", meta.Format)
	}
}

func TestExtractMetadataMissingFile(t *testing.T) {
	svc := testService()

	meta := svc.ExtractMetadata(filepath.Join(t.TempDir(), "nope.ogg"))
	if meta.Duration != nil || meta.Err == "" {
		t.Error("Expected degraded metadata for a missing file")
	}
}
