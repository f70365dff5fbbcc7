// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package ffmpeg

import (
	"fmt"
	"strings"
)

// Spec is the plain-data description of a single ffmpeg invocation. It is
// intentionally decoupled from internal/action and internal/inspect so this
// package stays a thin process wrapper; internal/execadapter is responsible
// for translating an action.Plan into a Spec.
type Spec struct {
	InputPath  string
	OutputPath string

	// StreamMaps are raw "-map" argument values, e.g. "0:0", "0:a:1".
	StreamMaps []string

	// ComplexFilter, if non-empty, is passed as a single -filter_complex
	// argument (used for synthesized/downmixed audio tracks) and its labeled
	// outputs are expected to already be present in StreamMaps as "[label]".
	ComplexFilter string

	VideoCodec string   // "" = -c:v copy
	VideoArgs  []string // additional encoder args (crf/bitrate/preset/scale/hwaccel)

	// AudioCodecs maps an output stream position (0-based, audio-only) to a
	// codec; positions absent from the map default to "copy".
	AudioCodecs map[int]string
	AudioArgs   map[int][]string

	// DispositionArgs are raw "-disposition:<spec>" values, e.g.
	// "-disposition:a:0 default".
	DispositionArgs []string

	// MetadataArgs are raw "-metadata:<spec>" key=value pairs, e.g.
	// "-metadata:s:a:1 language=jpn".
	MetadataArgs []string

	ContainerFormat string // "-f" value; "" lets ffmpeg infer from OutputPath
}

// BuildArgs renders a Spec into an ffmpeg argument list.
func BuildArgs(s Spec) ([]string, error) {
	if strings.TrimSpace(s.InputPath) == "" {
		return nil, fmt.Errorf("ffmpeg: input path is empty")
	}
	if strings.TrimSpace(s.OutputPath) == "" {
		return nil, fmt.Errorf("ffmpeg: output path is empty")
	}

	args := []string{"-y", "-nostdin", "-hide_banner", "-progress", "pipe:2", "-loglevel", "warning",
		"-i", s.InputPath}

	if s.ComplexFilter != "" {
		args = append(args, "-filter_complex", s.ComplexFilter)
	}

	for _, m := range s.StreamMaps {
		args = append(args, "-map", m)
	}

	if s.VideoCodec == "" {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args, "-c:v", s.VideoCodec)
		args = append(args, s.VideoArgs...)
	}

	// A general "-c:a copy" first; the per-position options that follow are
	// more specific and override it for their own stream only.
	args = append(args, "-c:a", "copy")
	for _, pos := range audioPositionsInOrder(s.AudioCodecs) {
		codec := s.AudioCodecs[pos]
		if codec == "" {
			codec = "copy"
		}
		args = append(args, fmt.Sprintf("-c:a:%d", pos), codec)
		args = append(args, s.AudioArgs[pos]...)
	}

	args = append(args, "-c:s", "copy")

	for _, d := range s.DispositionArgs {
		parts := strings.SplitN(d, " ", 2)
		if len(parts) == 2 {
			args = append(args, parts[0], parts[1])
		}
	}
	for _, m := range s.MetadataArgs {
		parts := strings.SplitN(m, " ", 2)
		if len(parts) == 2 {
			args = append(args, parts[0], parts[1])
		}
	}

	if s.ContainerFormat != "" {
		args = append(args, "-f", s.ContainerFormat)
	}

	args = append(args, s.OutputPath)
	return args, nil
}

func audioPositionsInOrder(codecs map[int]string) []int {
	out := make([]int, 0, len(codecs))
	for pos := range codecs {
		out = append(out, pos)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
