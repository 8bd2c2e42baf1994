package seed

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/draftdesk/feedpipe/app/database"
)

const (
	maxKeywordFilters     = 50
	maxKeywordFilterChars = 100
)

// Definition is a feed definition file. Definitions are registered in
// the database at startup, keyed by (user, url); the database remains
// the source of truth afterwards.
type Definition struct {
	URL            string          `yaml:"url"`
	User           string          `yaml:"user"`
	Title          string          `yaml:"title"`
	Description    string          `yaml:"description"`
	Category       string          `yaml:"category"`
	Cadence        string          `yaml:"cadence"`
	KeywordFilters []string        `yaml:"keyword_filters"`
	ContentFilters map[string]bool `yaml:"content_filters"`
	ExtractContent bool            `yaml:"extract_content"`
	Active         *bool           `yaml:"active"`
}

// Loader loads feed definitions from a directory of YAML files.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

func (l *Loader) LoadAll() (map[string]*Definition, error) {
	definitions := make(map[string]*Definition)

	if _, err := os.Stat(l.dir); os.IsNotExist(err) {
		return definitions, nil
	}

	files, err := filepath.Glob(filepath.Join(l.dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		definition, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(definition); err != nil {
			return nil, fmt.Errorf("invalid definition %s: %w", file, err)
		}

		definitions[file] = definition
	}

	return definitions, nil
}

func (l *Loader) loadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var definition Definition
	if err := yaml.Unmarshal(data, &definition); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	l.setDefaults(&definition)

	return &definition, nil
}

func (l *Loader) setDefaults(definition *Definition) {
	definition.Cadence = string(database.ParseCadence(definition.Cadence))
	if definition.User == "" {
		definition.User = "system"
	}
	if definition.Active == nil {
		active := true
		definition.Active = &active
	}
}

func (l *Loader) validate(definition *Definition) error {
	if definition.URL == "" {
		return fmt.Errorf("feed URL is required")
	}

	if len(definition.KeywordFilters) > maxKeywordFilters {
		return fmt.Errorf("too many keyword filters: %d (max %d)", len(definition.KeywordFilters), maxKeywordFilters)
	}
	for _, keyword := range definition.KeywordFilters {
		if len(keyword) > maxKeywordFilterChars {
			return fmt.Errorf("keyword filter too long: %q (max %d chars)", keyword, maxKeywordFilterChars)
		}
	}

	return nil
}

// Feed converts the definition to its database representation.
func (d *Definition) Feed() *database.Feed {
	return &database.Feed{
		UserID:         d.User,
		URL:            d.URL,
		Title:          d.Title,
		Description:    d.Description,
		Category:       d.Category,
		Active:         *d.Active,
		Cadence:        database.ParseCadence(d.Cadence),
		KeywordFilters: d.KeywordFilters,
		ContentFilters: d.ContentFilters,
		ExtractContent: d.ExtractContent,
		HealthScore:    1.0,
	}
}
