// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package ffmpeg wraps the ffprobe/ffmpeg binaries behind the data shapes
// internal/mediaprovider and internal/execadapter need, so no other package
// shells out directly.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/vpoeng/vpo/internal/inspect"
)

// Prober runs ffprobe against a source file and parses its JSON output into
// an Inspection (§6.3: "pure data; no side effects on the target file").
type Prober struct {
	BinaryPath string
}

func NewProber(binaryPath string) *Prober {
	return &Prober{BinaryPath: strings.TrimSpace(binaryPath)}
}

// Probe executes ffprobe and returns an Inspection. It never mutates path.
func (p *Prober) Probe(ctx context.Context, path string) (inspect.Inspection, error) {
	bin := p.BinaryPath
	if bin == "" {
		bin = "ffprobe"
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	// #nosec G204 - binary path is operator-configured, args are fixed and path is the caller's own input
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		errStr := stderr.String()
		if len(errStr) > 4096 {
			errStr = errStr[:4096] + "..."
		}
		return inspect.Inspection{}, fmt.Errorf("ffmpeg: ffprobe failed: %w (stderr: %s)", err, errStr)
	}

	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return inspect.Inspection{}, fmt.Errorf("ffmpeg: decode ffprobe json: %w", err)
	}

	insp := inspect.Inspection{
		File: inspect.File{
			Path:      path,
			Container: canonicalContainer(data.Format.FormatName),
			Metadata:  data.Format.Tags,
		},
		Plugins: inspect.PluginMetadata{},
	}
	if sizeBytes, err := strconv.ParseInt(data.Format.Size, 10, 64); err == nil {
		insp.File.SizeBytes = sizeBytes
	}

	for _, s := range data.Streams {
		kind, ok := trackKindOf(s.CodecType)
		if !ok {
			continue
		}

		t := inspect.Track{
			Index:        s.Index,
			Kind:         kind,
			Codec:        strings.ToLower(s.CodecName),
			Language:     languageOf(s.Tags),
			Title:        s.Tags["title"],
			IsDefault:    s.Disposition.Default == 1,
			IsForced:     s.Disposition.Forced == 1,
			IsCommentary: strings.Contains(strings.ToLower(s.Tags["title"]), "commentary"),
		}
		switch kind {
		case inspect.Video:
			t.Width = s.Width
			t.Height = s.Height
		case inspect.Audio:
			t.Channels = s.Channels
			if sr, err := strconv.Atoi(s.SampleRate); err == nil {
				t.SampleRate = sr
			}
		}
		if br, err := strconv.ParseInt(s.BitRate, 10, 64); err == nil {
			t.Bitrate = &br
		}
		insp.Tracks = append(insp.Tracks, t)
	}

	return insp, nil
}

func trackKindOf(codecType string) (inspect.TrackKind, bool) {
	switch codecType {
	case "video":
		return inspect.Video, true
	case "audio":
		return inspect.Audio, true
	case "subtitle":
		return inspect.Subtitle, true
	case "attachment":
		return inspect.Attachment, true
	default:
		return "", false
	}
}

func languageOf(tags map[string]string) string {
	if lang, ok := tags["language"]; ok && lang != "" {
		return strings.ToLower(lang)
	}
	return inspect.UndeterminedLanguage
}

func canonicalContainer(formatName string) inspect.ContainerKind {
	for _, p := range strings.Split(formatName, ",") {
		switch strings.TrimSpace(p) {
		case "matroska", "webm":
			if strings.Contains(formatName, "webm") && !strings.Contains(formatName, "matroska") {
				return inspect.ContainerWebM
			}
			return inspect.ContainerMKV
		case "mov", "mp4", "m4a", "3gp", "3g2", "mj2":
			return inspect.ContainerMP4
		}
	}
	return inspect.ContainerOther
}

type probeData struct {
	Streams []struct {
		Index       int               `json:"index"`
		CodecType   string            `json:"codec_type"`
		CodecName   string            `json:"codec_name"`
		Width       int               `json:"width,omitempty"`
		Height      int               `json:"height,omitempty"`
		Channels    int               `json:"channels,omitempty"`
		SampleRate  string            `json:"sample_rate,omitempty"`
		BitRate     string            `json:"bit_rate,omitempty"`
		Tags        map[string]string `json:"tags,omitempty"`
		Disposition struct {
			Default int `json:"default"`
			Forced  int `json:"forced"`
		} `json:"disposition"`
	} `json:"streams"`
	Format struct {
		FormatName string            `json:"format_name"`
		Size       string            `json:"size"`
		Tags       map[string]string `json:"tags,omitempty"`
	} `json:"format"`
}
