package site

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Localized is a per-language string, keyed by language tag.
type Localized map[string]string

// In returns the value for lang, falling back to fallbackLang and then
// to any value present.
func (l Localized) In(lang, fallbackLang string) string {
	if v, ok := l[lang]; ok && v != "" {
		return v
	}
	if v, ok := l[fallbackLang]; ok && v != "" {
		return v
	}
	for _, v := range l {
		if v != "" {
			return v
		}
	}
	return ""
}

// Project is one portfolio entry on the home page.
type Project struct {
	Name        string    `yaml:"name"`
	URL         string    `yaml:"url"`
	Description Localized `yaml:"description"`
}

// Profile is the home-page profile card content.
type Profile struct {
	Name     string      `yaml:"name"`
	Role     Localized   `yaml:"role"`
	Bio      Localized   `yaml:"bio"`
	Badges   []Localized `yaml:"badges"`
	Projects []Project   `yaml:"projects"`
}

// LoadProfile reads the profile content file. A missing file yields an
// empty profile so the site still serves articles.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Profile{}, nil
		}
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return &p, nil
}
