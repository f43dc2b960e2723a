package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// Metadata is the technical description of a stored audio file. Duration and
// Bitrate are nil when they could not be determined; Err carries the note for
// a failed extraction.
type Metadata struct {
	Duration *float64 `json:"duration"` // seconds
	Bitrate  *int     `json:"bitrate"`  // bits per second
	Format   string   `json:"format"`
	FileSize int64    `json:"file_size"`
	Err      string   `json:"error,omitempty"`
}

// ExtractMetadata inspects the audio file at path, dispatching on its
// extension. It never fails: any parsing error degrades to a Metadata with
// null duration/bitrate and the error attached, so ingestion of the song
// record can proceed.
func (s *Service) ExtractMetadata(path string) Metadata {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	stat, err := os.Stat(path)
	if err != nil {
		return s.degraded(path, format, err)
	}
	fileSize := stat.Size()

	var duration float64
	var bitrate int
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		duration, bitrate, err = durationMP3(path, fileSize)
	case ".ogg":
		duration, bitrate, err = durationOGG(path, fileSize)
	case ".wav":
		duration, bitrate, err = durationWAV(path, fileSize)
	case ".flac":
		duration, bitrate, err = durationFLAC(path, fileSize)
	default:
		// Generic open-and-inspect attempt: identify the container with the
		// tag probe. Duration stays unknown for formats outside the dispatch.
		err = probeGeneric(path)
		if err == nil {
			return Metadata{Format: format, FileSize: fileSize}
		}
	}
	if err != nil {
		return s.degraded(path, format, err)
	}

	meta := Metadata{Format: format, FileSize: fileSize}
	meta.Duration = &duration
	if bitrate > 0 {
		meta.Bitrate = &bitrate
	}
	return meta
}

// degraded returns the null-metadata record for a failed extraction. The
// failure is logged but never propagated to the caller.
func (s *Service) degraded(path, format string, err error) Metadata {
	s.logger.WithError(err).WithField("path", path).Warn("Metadata extraction failed, storing with null metadata")
	return Metadata{
		Format:   format,
		FileSize: 0,
		Err:      err.Error(),
	}
}

// MP3 duration by decoding every frame; bitrate is derived from file size
// over playing time, which also holds for VBR files.
func durationMP3(path string, fileSize int64) (float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return 0, 0, fmt.Errorf("no decodable mp3 frames: %w", err)
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}

	duration := total.Seconds()
	if duration <= 0 {
		return 0, 0, fmt.Errorf("mp3 stream has zero duration")
	}
	return duration, estimateBitrate(fileSize, duration), nil
}

// OGG Vorbis duration via the stream's sample count and rate.
func durationOGG(path string, fileSize int64) (float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	samples, format, err := oggvorbis.GetLength(f)
	if err != nil {
		return 0, 0, err
	}
	if samples <= 0 || format.SampleRate <= 0 {
		return 0, 0, fmt.Errorf("ogg stream missing sample info")
	}

	duration := float64(samples) / float64(format.SampleRate)
	return duration, estimateBitrate(fileSize, duration), nil
}

// WAV duration from the header plus PCM byte count; bitrate is exact for
// uncompressed PCM.
func durationWAV(path string, fileSize int64) (float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, 0, fmt.Errorf("invalid wav header")
	}

	bytesPerSampleFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerSampleFrame <= 0 {
		return 0, 0, fmt.Errorf("invalid sample frame size")
	}

	// Approximate using file size; the canonical 44-byte header is close
	// enough for duration purposes.
	pcmBytes := fileSize - 44
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	sampleFrames := pcmBytes / bytesPerSampleFrame
	duration := float64(sampleFrames) / float64(dec.SampleRate)
	bitrate := int(dec.SampleRate) * int(dec.BitDepth) * int(dec.NumChans)
	return duration, bitrate, nil
}

// FLAC duration via the STREAMINFO metadata block.
func durationFLAC(path string, fileSize int64) (float64, int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return 0, 0, fmt.Errorf("flac stream missing sample info")
	}

	duration := float64(si.NSamples) / float64(si.SampleRate)
	return duration, estimateBitrate(fileSize, duration), nil
}

// probeGeneric attempts to identify an unrecognized file as some known audio
// container via its tags.
func probeGeneric(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := tag.ReadFrom(f); err != nil {
		return fmt.Errorf("unrecognized audio format: %w", err)
	}
	return nil
}

// estimateBitrate derives an average bitrate from file size and playing time.
func estimateBitrate(fileSize int64, duration float64) int {
	if duration <= 0 {
		return 0
	}
	return int(float64(fileSize*8) / duration)
}
