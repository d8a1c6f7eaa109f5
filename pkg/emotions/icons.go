package emotions

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// BalloonIcon is the speech balloon behind tone badges.
const BalloonIcon = "speech_balloon"

//go:embed data/icons.json
var embeddedIcons embed.FS

// Icon describes an overlay image asset. Width and Height are the source
// size in pixels; renderers scale into a destination rectangle.
type Icon struct {
	Name   string `json:"name"`
	File   string `json:"file"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// IconSet is a read-mostly registry of icons keyed by name.
type IconSet struct {
	mu    sync.RWMutex
	icons map[string]Icon
}

// NewIconSet creates an empty set.
func NewIconSet() *IconSet {
	return &IconSet{icons: make(map[string]Icon)}
}

// LoadEmbedded returns the built-in icon set. It contains an icon for every
// Emotion plus the speech balloon.
func LoadEmbedded() (*IconSet, error) {
	data, err := embeddedIcons.ReadFile("data/icons.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded icons: %w", err)
	}
	return parseManifest(data)
}

// MustEmbedded is LoadEmbedded that panics on a corrupt build.
func MustEmbedded() *IconSet {
	set, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return set
}

// LoadFromFile loads a custom icon manifest from disk. Entries override the
// embedded defaults, so a partial manifest is allowed.
func LoadFromFile(path string) (*IconSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read icon manifest: %w", err)
	}
	custom, err := parseManifest(data)
	if err != nil {
		return nil, err
	}

	set, err := LoadEmbedded()
	if err != nil {
		return nil, err
	}
	for _, icon := range custom.List() {
		set.Register(icon)
	}
	return set, nil
}

func parseManifest(data []byte) (*IconSet, error) {
	var raw map[string]Icon
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIcon, err)
	}

	set := NewIconSet()
	for name, icon := range raw {
		if icon.Width <= 0 || icon.Height <= 0 {
			return nil, fmt.Errorf("%w: %s has size %dx%d", ErrInvalidIcon, name, icon.Width, icon.Height)
		}
		icon.Name = name
		set.Register(icon)
	}
	return set, nil
}

// Register adds or replaces an icon.
func (s *IconSet) Register(icon Icon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.icons[icon.Name] = icon
}

// Get retrieves an icon by name.
func (s *IconSet) Get(name string) (Icon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	icon, ok := s.icons[name]
	if !ok {
		return Icon{}, fmt.Errorf("%w: %s", ErrIconNotFound, name)
	}
	return icon, nil
}

// For returns the icon for an emotion.
func (s *IconSet) For(e Emotion) (Icon, error) {
	return s.Get(e.String())
}

// List returns all icons sorted by name.
func (s *IconSet) List() []Icon {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Icon, 0, len(s.icons))
	for _, icon := range s.icons {
		list = append(list, icon)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
