// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package policy

import (
	"strconv"
	"strings"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/policyerr"
)

func decodeSynthesisSpec(d *doc) (SynthesisSpec, error) {
	spec := SynthesisSpec{
		Track: action.SynthesisTrackSpec{
			Name:     firstOr(d.str("name")),
			Codec:    firstOr(d.str("codec")),
			Channels: d.integer("channels", 0),
			Title:    firstOr(d.str("title")),
			Language: firstOr(d.str("language")),
			Position: firstOr(d.str("position")),
		},
	}
	if strings.ContainsAny(spec.Track.Name, "/\\") {
		return spec, &policyerr.SemanticError{Path: d.path + ".name", Reason: "synthesis track name must not contain path separators"}
	}
	for i, raw := range d.rawList("source_prefer") {
		m, ok := asMap(raw)
		if !ok {
			continue
		}
		cd := newDoc(d.path+".source_prefer["+strconv.Itoa(i)+"]", m)
		sc := SourceCriterion{NotCommentary: cd.boolean("not_commentary", false)}
		if s, ok := cd.str("language"); ok {
			sc.Language = &s
		}
		if s, ok := cd.str("codec"); ok {
			sc.Codec = &s
		}
		if c := cd.child("channels"); c != nil {
			nf := decodeNumericFilter(c)
			sc.Channels = &nf
		}
		spec.SourcePrefer = append(spec.SourcePrefer, sc)
	}
	if c := d.child("skip_if_exists"); c != nil {
		skip := &SkipIfExists{}
		if s, ok := c.str("codec"); ok {
			skip.Codec = &s
		}
		if s, ok := c.str("language"); ok {
			skip.Language = &s
		}
		if b := c.boolPtr("not_commentary"); b != nil {
			skip.NotCommentary = b
		}
		if cc := c.child("channels"); cc != nil {
			nf := decodeNumericFilter(cc)
			skip.Channels = &nf
		}
		spec.SkipIfExists = skip
	}
	if raw, ok := d.fields["create_if"]; ok {
		d.consumed["create_if"] = true
		cond, err := decodeCondition(d.path+".create_if", raw, 0)
		if err != nil {
			return spec, err
		}
		spec.CreateIf = cond
	}
	return spec, nil
}

func decodeTranscode(d *doc) (*Transcode, error) {
	t := &Transcode{}
	if v := d.child("video"); v != nil {
		vt := &VideoTranscode{TargetCodec: firstOr(v.str("target_codec"))}
		if s := v.child("skip_if"); s != nil {
			skip := &VideoSkipIf{
				CodecMatches: s.strList("codec_matches"),
				BitrateUnder: firstOr(s.str("bitrate_under")),
			}
			if rb := s.child("resolution_within"); rb != nil {
				skip.ResolutionWithin = &ResolutionBucket{
					MaxWidth:  rb.integer("max_width", 0),
					MaxHeight: rb.integer("max_height", 0),
				}
			}
			vt.SkipIf = skip
		}
		if q := v.child("quality"); q != nil {
			mode := action.VideoQualityMode(firstOr(q.str("mode")))
			if mode == "" {
				mode = action.QualityCRF
			}
			vq := action.VideoQuality{Mode: mode}
			switch mode {
			case action.QualityCRF:
				vq.CRF = q.integer("crf", -1)
				if vq.CRF < 0 || vq.CRF > 51 {
					return nil, &policyerr.SemanticError{Path: q.path + ".crf", Reason: "crf must be in [0,51]"}
				}
			case action.QualityBitrate:
				vq.Bitrate = firstOr(q.str("bitrate"))
			case action.QualityConstrainedQuality:
				vq.MinBitrate = firstOr(q.str("min_bitrate"))
				vq.MaxBitrate = firstOr(q.str("max_bitrate"))
			}
			vt.Quality = vq
		}
		if sc := v.child("scaling"); sc != nil {
			vt.Scaling = &action.Scaling{MaxWidth: sc.integer("max_width", 0), MaxHeight: sc.integer("max_height", 0)}
		}
		if hw := v.child("hardware_acceleration"); hw != nil {
			vt.HardwareAcceleration = action.HardwareAcceleration{
				Backend:       firstOr(hw.str("backend")),
				FallbackToCPU: hw.boolean("fallback_to_cpu", true),
			}
		}
		t.Video = vt
	}
	if a := d.child("audio"); a != nil {
		t.Audio = &AudioTranscode{
			PreserveCodecs: a.strList("preserve_codecs"),
			To:             firstOr(a.str("to")),
			Bitrate:        firstOr(a.str("bitrate")),
		}
	}
	return t, nil
}

