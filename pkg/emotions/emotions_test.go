package emotions

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseFace(t *testing.T) {
	tests := []struct {
		label string
		want  Emotion
	}{
		{"anger", Anger},
		{"Anger", Anger},
		{"contempt", Contempt},
		{"sadness", Sadness},
		{"neutral", Neutral},
		{"HAPPINESS", Happiness},
		{"fear", Fear},
		{"disgust", Neutral},
		{"surprise", Neutral},
		{"", Neutral},
		{"bogus", Neutral},
	}
	for _, tt := range tests {
		if got := ParseFace(tt.label); got != tt.want {
			t.Errorf("ParseFace(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestParseTone(t *testing.T) {
	tests := []struct {
		name string
		want Emotion
	}{
		{"Anger", Anger},
		{"Disgust", Contempt},
		{"Sadness", Sadness},
		{"Joy", Happiness},
		{"joy", Happiness},
		{"Fear", Fear},
		{"Analytical", Neutral},
		{"X", Neutral},
	}
	for _, tt := range tests {
		if got := ParseTone(tt.name); got != tt.want {
			t.Errorf("ParseTone(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestZeroValueIsAnger(t *testing.T) {
	var e Emotion
	if e != Anger {
		t.Errorf("zero Emotion = %v, want anger", e)
	}
}

func TestTextRoundTrip(t *testing.T) {
	data, err := json.Marshal([]Emotion{Happiness, Fear})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["happiness","fear"]` {
		t.Errorf("json = %s", data)
	}

	var back []Emotion
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[0] != Happiness || back[1] != Fear {
		t.Errorf("round trip = %v", back)
	}

	var e Emotion
	if err := e.UnmarshalText([]byte("joy")); !errors.Is(err, ErrUnknownEmotion) {
		t.Errorf("UnmarshalText(joy) err = %v, want ErrUnknownEmotion", err)
	}
	if _, err := Emotion(42).MarshalText(); !errors.Is(err, ErrUnknownEmotion) {
		t.Errorf("MarshalText(42) err = %v", err)
	}
}

func TestEmbeddedIconsCoverEveryEmotion(t *testing.T) {
	set, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}

	for _, e := range All() {
		icon, err := set.For(e)
		if err != nil {
			t.Errorf("no icon for %v: %v", e, err)
			continue
		}
		if icon.Width <= 0 || icon.Height <= 0 {
			t.Errorf("icon %s has size %dx%d", icon.Name, icon.Width, icon.Height)
		}
	}

	if _, err := set.Get(BalloonIcon); err != nil {
		t.Errorf("balloon icon missing: %v", err)
	}
	if _, err := set.Get("nope"); !errors.Is(err, ErrIconNotFound) {
		t.Errorf("Get(nope) err = %v, want ErrIconNotFound", err)
	}
}

func TestLoadFromFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icons.json")
	manifest := `{"fear": {"file": "custom_fear.png", "width": 64, "height": 32}}`
	if err := os.WriteFile(path, []byte(manifest), 0o600); err != nil {
		t.Fatal(err)
	}

	set, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	fear, _ := set.For(Fear)
	if fear.File != "custom_fear.png" || fear.Width != 64 || fear.Height != 32 {
		t.Errorf("fear = %+v", fear)
	}
	if _, err := set.For(Anger); err != nil {
		t.Errorf("embedded anger lost: %v", err)
	}
}

func TestLoadFromFileRejectsBadSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icons.json")
	if err := os.WriteFile(path, []byte(`{"fear": {"file": "f.png", "width": 0, "height": 10}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); !errors.Is(err, ErrInvalidIcon) {
		t.Errorf("err = %v, want ErrInvalidIcon", err)
	}
}
