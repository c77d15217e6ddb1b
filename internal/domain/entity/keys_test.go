package entity

import "testing"

func TestKeyFormats(t *testing.T) {
	if got := KeyBeatPlan(2); got != "beats_ch2" {
		t.Errorf("KeyBeatPlan(2) = %q", got)
	}
	if got := KeyBeatText(2, 11); got != "ch2_beat_11" {
		t.Errorf("KeyBeatText(2, 11) = %q", got)
	}
	if got := KeyContinuity(3); got != "ch3_continuity" {
		t.Errorf("KeyContinuity(3) = %q", got)
	}
	if got := BeatTextKeyPrefix(1); got != "ch1_beat_" {
		t.Errorf("BeatTextKeyPrefix(1) = %q", got)
	}
}

func TestParseBeatIndex(t *testing.T) {
	cases := []struct {
		key     string
		chapter int
		want    int
		ok      bool
	}{
		{"ch1_beat_0", 1, 0, true},
		{"ch1_beat_10", 1, 10, true},
		{"ch2_beat_3", 1, 0, false},
		{"ch1_continuity", 1, 0, false},
		{"ch1_beat_", 1, 0, false},
		{"ch1_beat_x", 1, 0, false},
		{"ch1_beat_-1", 1, 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseBeatIndex(tc.key, tc.chapter)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseBeatIndex(%q, %d) = (%d, %v), want (%d, %v)",
				tc.key, tc.chapter, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeLanguage(t *testing.T) {
	if got := NormalizeLanguage(" RU "); got != LanguageRussian {
		t.Errorf("expected ru, got %q", got)
	}
	if got := NormalizeLanguage("fr"); got != LanguageEnglish {
		t.Errorf("unknown language should fall back to en, got %q", got)
	}
	if got := LanguageName("de"); got != "German" {
		t.Errorf("LanguageName(de) = %q", got)
	}
}

func TestNewProjectDefaults(t *testing.T) {
	p := NewProject("  ", "xx")
	if p.Title != "Untitled" {
		t.Errorf("blank title should become Untitled, got %q", p.Title)
	}
	if p.Language != LanguageEnglish {
		t.Errorf("unknown language should become en, got %q", p.Language)
	}
	if p.ID == "" {
		t.Error("expected generated id")
	}
	if p.IsDefault() {
		t.Error("generated project must not be the reserved default")
	}
}
