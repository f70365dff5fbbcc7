// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package execadapter

import (
	"fmt"
	"strings"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/infra/ffmpeg"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/phase"
)

// buildSpec folds a finished Plan against the original Inspection into a
// single ffmpeg.Spec: materialize the virtual view the Plan describes, then
// render every surviving track into a -map entry plus whatever codec/
// disposition/metadata arguments its actions imply. vpo compiles a whole
// Plan into one ffmpeg invocation rather than one process per action, so
// "observe cancel_token at each action boundary" (§6.2) is honored at
// Execute's process-launch boundary and at each progress checkpoint during
// that single invocation, not via one subprocess per Action.
func buildSpec(plan action.Plan, insp inspect.Inspection, outputPath string) (ffmpeg.Spec, error) {
	view := phase.NewView(insp)
	view.Apply(plan)
	final := view.Materialize()

	synthByIndex := map[int]action.CreateSynthesizedTrack{}
	videoTranscode, haveVideoTranscode := (action.TranscodeVideo{}), false
	audioTranscodeByIndex := map[int]action.TranscodeAudio{}
	containerTarget := ""
	var containerMode action.ContainerIncompatibleMode

	for _, a := range plan {
		switch act := a.(type) {
		case action.CreateSynthesizedTrack:
			synthByIndex[indexOfSynthesis(final, act)] = act
		case action.TranscodeVideo:
			videoTranscode, haveVideoTranscode = act, true
		case action.TranscodeAudio:
			audioTranscodeByIndex[act.TrackIndex] = act
		case action.ConvertContainer:
			containerTarget = act.Target
			containerMode = act.OnIncompatible
		}
	}

	spec := ffmpeg.Spec{
		InputPath:   insp.File.Path,
		OutputPath:  outputPath,
		AudioCodecs: map[int]string{},
		AudioArgs:   map[int][]string{},
	}

	var filters []string
	audioPos := 0
	for _, t := range final.Tracks {
		switch t.Kind {
		case inspect.Video:
			spec.StreamMaps = append(spec.StreamMaps, fmt.Sprintf("0:%d", t.Index))
			if haveVideoTranscode {
				spec.VideoCodec = videoTranscode.Codec
				spec.VideoArgs = videoArgsFor(videoTranscode)
			}

		case inspect.Audio:
			if t.Index < 0 {
				synth, ok := synthByIndex[t.Index]
				if !ok {
					return ffmpeg.Spec{}, fmt.Errorf("execadapter: synthesized track %d has no originating action", t.Index)
				}
				label := fmt.Sprintf("synth%d", -t.Index)
				filters = append(filters, synthesisFilter(synth, label))
				spec.StreamMaps = append(spec.StreamMaps, "["+label+"]")
				spec.AudioCodecs[audioPos] = synth.Spec.Codec
			} else {
				spec.StreamMaps = append(spec.StreamMaps, fmt.Sprintf("0:%d", t.Index))
				if tc, ok := audioTranscodeByIndex[t.Index]; ok {
					spec.AudioCodecs[audioPos] = tc.To
					if tc.Bitrate != "" {
						spec.AudioArgs[audioPos] = []string{fmt.Sprintf("-b:a:%d", audioPos), tc.Bitrate}
					}
				}
			}
			spec.DispositionArgs = append(spec.DispositionArgs, dispositionArg("a", audioPos, t))
			if t.Language != "" {
				spec.MetadataArgs = append(spec.MetadataArgs, fmt.Sprintf("-metadata:s:a:%d language=%s", audioPos, t.Language))
			}
			audioPos++

		case inspect.Subtitle:
			spec.StreamMaps = append(spec.StreamMaps, fmt.Sprintf("0:%d", t.Index))

		case inspect.Attachment:
			spec.StreamMaps = append(spec.StreamMaps, fmt.Sprintf("0:%d", t.Index))
		}
	}

	if len(filters) > 0 {
		spec.ComplexFilter = strings.Join(filters, ";")
	}
	if containerTarget != "" {
		format, ok := containerFormatOf(containerTarget)
		if !ok {
			switch containerMode {
			case action.OnIncompatibleSkip:
				// leave ContainerFormat unset; ffmpeg infers from OutputPath
			default:
				return ffmpeg.Spec{}, fmt.Errorf("execadapter: unsupported container target %q", containerTarget)
			}
		} else {
			spec.ContainerFormat = format
		}
	}

	return spec, nil
}

// indexOfSynthesis finds the pseudo-index Materialize assigned the track
// this CreateSynthesizedTrack produced, by matching on its declared spec
// (source index plus codec/channels are unique enough in practice since a
// phase doesn't synthesize two identical tracks from the same source).
func indexOfSynthesis(insp inspect.Inspection, act action.CreateSynthesizedTrack) int {
	for _, t := range insp.Tracks {
		if t.Index < 0 && t.Codec == act.Spec.Codec && t.Channels == act.Spec.Channels {
			return t.Index
		}
	}
	return 0
}

func videoArgsFor(v action.TranscodeVideo) []string {
	var args []string
	switch v.Quality.Mode {
	case action.QualityCRF:
		args = append(args, "-crf", fmt.Sprintf("%d", v.Quality.CRF))
	case action.QualityBitrate:
		args = append(args, "-b:v", v.Quality.Bitrate)
	case action.QualityConstrainedQuality:
		args = append(args, "-minrate", v.Quality.MinBitrate, "-maxrate", v.Quality.MaxBitrate)
	}
	if v.Scaling != nil {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", v.Scaling.MaxWidth, v.Scaling.MaxHeight))
	}
	return args
}

// synthesisFilter builds a minimal aformat filter graph node producing
// label from the synthesized track's declared channel count, downmixing or
// upmixing the source stream as needed.
func synthesisFilter(synth action.CreateSynthesizedTrack, label string) string {
	layout := channelLayout(synth.Spec.Channels)
	return fmt.Sprintf("[0:%d]aformat=channel_layouts=%s[%s]", synth.SourceIndex, layout, label)
}

func channelLayout(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	default:
		return "stereo"
	}
}

func dispositionArg(kindLetter string, pos int, t inspect.Track) string {
	var flags []string
	if t.IsDefault {
		flags = append(flags, "default")
	}
	if t.IsForced {
		flags = append(flags, "forced")
	}
	value := "0"
	if len(flags) > 0 {
		value = strings.Join(flags, "+")
	}
	return fmt.Sprintf("-disposition:%s:%d %s", kindLetter, pos, value)
}

func containerFormatOf(target string) (string, bool) {
	switch strings.ToLower(target) {
	case "mkv", "matroska":
		return "matroska", true
	case "mp4":
		return "mp4", true
	case "webm":
		return "webm", true
	default:
		return "", false
	}
}
