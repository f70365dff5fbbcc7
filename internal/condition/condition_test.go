// SPDX-License-Identifier: MIT

package condition

import (
	"testing"

	"github.com/vpoeng/vpo/internal/inspect"
)

func audioInspection(tracks ...inspect.Track) inspect.Inspection {
	return inspect.Inspection{Tracks: tracks}
}

func TestExistsMatchesLanguage(t *testing.T) {
	insp := audioInspection(
		inspect.Track{Index: 0, Kind: inspect.Audio, Codec: "aac", Language: "eng"},
		inspect.Track{Index: 1, Kind: inspect.Audio, Codec: "ac3", Language: "jpn"},
	)
	cond := Exists{TrackKind: inspect.Audio, Filters: TrackFilters{Language: []string{"jpn"}}}
	ok, err := Evaluate(cond, insp, Context{})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected exists(jpn) = true")
	}
}

func TestCountWithOp(t *testing.T) {
	insp := audioInspection(
		inspect.Track{Index: 0, Kind: inspect.Audio, Codec: "aac", Language: "eng"},
		inspect.Track{Index: 1, Kind: inspect.Audio, Codec: "ac3", Language: "eng"},
	)
	cond := Count{TrackKind: inspect.Audio, Op: OpEq, Value: 2}
	ok, err := Evaluate(cond, insp, Context{})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected count == 2")
	}
}

func TestAndShortCircuitsOnFirstFalse(t *testing.T) {
	insp := audioInspection()
	cond := And{Children: []Condition{
		Exists{TrackKind: inspect.Audio},
		Exists{TrackKind: inspect.Subtitle},
	}}
	ok, err := Evaluate(cond, insp, Context{})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected And over empty inspection to be false")
	}
}

func TestOrTrueIfAnyChild(t *testing.T) {
	insp := audioInspection(inspect.Track{Index: 0, Kind: inspect.Video, Codec: "hevc"})
	cond := Or{Children: []Condition{
		Exists{TrackKind: inspect.Audio},
		Exists{TrackKind: inspect.Video},
	}}
	ok, _ := Evaluate(cond, insp, Context{})
	if !ok {
		t.Fatal("expected Or to be true")
	}
}

func TestNotNegates(t *testing.T) {
	insp := audioInspection()
	cond := Not{Child: Exists{TrackKind: inspect.Audio}}
	ok, _ := Evaluate(cond, insp, Context{})
	if !ok {
		t.Fatal("expected Not(false) = true")
	}
}

func TestValidateNestingRejectsDeepTree(t *testing.T) {
	deep := Not{Child: Not{Child: Not{Child: Exists{TrackKind: inspect.Audio}}}}
	if err := ValidateNesting(deep, 0, "root"); err == nil {
		t.Fatal("expected nesting-too-deep error")
	}
}

func TestValidateNestingAllowsTwoLevels(t *testing.T) {
	ok := And{Children: []Condition{
		Or{Children: []Condition{Exists{TrackKind: inspect.Audio}}},
	}}
	if err := ValidateNesting(ok, 0, "root"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAudioIsMultiLanguage(t *testing.T) {
	insp := audioInspection(
		inspect.Track{Index: 0, Kind: inspect.Audio, Codec: "aac", Language: "eng"},
		inspect.Track{Index: 1, Kind: inspect.Audio, Codec: "aac", Language: "eng"},
		inspect.Track{Index: 2, Kind: inspect.Audio, Codec: "aac", Language: "jpn"},
	)
	cond := AudioIsMultiLanguage{Threshold: 0.2}
	ok, err := Evaluate(cond, insp, Context{})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected multi-language true (1/3 jpn >= 0.2 threshold)")
	}
}

func TestAudioIsMultiLanguagePrimaryLanguageMismatch(t *testing.T) {
	insp := audioInspection(
		inspect.Track{Index: 0, Kind: inspect.Audio, Codec: "aac", Language: "eng"},
		inspect.Track{Index: 1, Kind: inspect.Audio, Codec: "aac", Language: "jpn"},
	)
	primary := "fra"
	cond := AudioIsMultiLanguage{Threshold: 0.1, PrimaryLanguage: &primary}
	ok, _ := Evaluate(cond, insp, Context{})
	if ok {
		t.Fatal("expected false: primary_language does not match most-represented language")
	}
}

func TestIsOriginalRequiresConfidence(t *testing.T) {
	insp := audioInspection(
		inspect.Track{Index: 0, Kind: inspect.Audio, Codec: "aac", Language: "jpn", Original: &inspect.Confidence{Value: true, Score: 0.9}},
	)
	ok, err := Evaluate(IsOriginal{Value: true, MinConfidence: 0.5}, insp, Context{})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected is_original true")
	}
}

func TestPluginMetadataExists(t *testing.T) {
	insp := inspect.Inspection{Plugins: inspect.PluginMetadata{"classifier": {"genre": "anime"}}}
	ok, err := Evaluate(PluginMetadata{Plugin: "classifier", Field: "genre", Op: MetaExists}, insp, Context{})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected exists = true")
	}
}

func TestPluginMetadataEqNumeric(t *testing.T) {
	insp := inspect.Inspection{Plugins: inspect.PluginMetadata{"p": {"score": 42.0}}}
	ok, err := Evaluate(PluginMetadata{Plugin: "p", Field: "score", Op: MetaEq, Value: 42.0}, insp, Context{})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected numeric eq true")
	}
}

func TestContainerMetadataGte(t *testing.T) {
	insp := inspect.Inspection{File: inspect.File{Metadata: map[string]string{"bitrate": "5000000"}}}
	ok, err := Evaluate(ContainerMetadata{Field: "bitrate", Op: MetaGte, Value: 4000000.0}, insp, Context{})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected gte true")
	}
}

func TestContainerMetadataGteNonNumericIsFalseNotError(t *testing.T) {
	insp := inspect.Inspection{File: inspect.File{Metadata: map[string]string{"title": "abc"}}}
	ok, err := Evaluate(ContainerMetadata{Field: "title", Op: MetaGte, Value: 1.0}, insp, Context{})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected false when field does not parse as a number")
	}
}

func TestTitleFilterCaseInsensitiveSubstring(t *testing.T) {
	f := TitleFilter{Contains: "Director"}
	if !f.Match("Director's Commentary") {
		t.Fatal("expected case-insensitive substring match")
	}
}

func TestCommentaryDetectionViaPluginFlag(t *testing.T) {
	track := inspect.Track{IsCommentary: true, Title: "Main Track"}
	if !IsCommentary(track, nil) {
		t.Fatal("expected plugin-set is_commentary to be honored")
	}
}

func TestCommentaryDetectionViaPattern(t *testing.T) {
	patterns, err := CompileCommentaryPatterns([]RawPattern{{Value: "commentary"}})
	if err != nil {
		t.Fatal(err)
	}
	track := inspect.Track{Title: "Director Commentary Track"}
	if !IsCommentary(track, patterns) {
		t.Fatal("expected pattern match")
	}
}
