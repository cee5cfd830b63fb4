// Package presets persists named pairs of file and prompt templates in a YAML file.
package presets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrPresetNotFound is returned when an identifier or name matches no preset.
var ErrPresetNotFound = errors.New("preset not found")

// ErrBlankName is returned when a preset would be stored without a name.
var ErrBlankName = errors.New("preset name must not be blank")

const (
	errorReadStoreFormat   = "read preset store %s: %w"
	errorDecodeStoreFormat = "decode preset store %s: %w"
	errorEncodeStoreFormat = "encode preset store: %w"
	errorWriteStoreFormat  = "write preset store %s: %w"
	errorCreateDirFormat   = "create preset directory %s: %w"
	errorPresetIDFormat    = "%w: %s"
	errorReorderFormat     = "reorder must list each of the %d presets exactly once"
)

// Preset is a named template pair.
type Preset struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	FileTemplate   string `yaml:"file_template" json:"file_template"`
	PromptTemplate string `yaml:"prompt_template" json:"prompt_template"`
}

type document struct {
	Presets []Preset `yaml:"presets"`
}

// Store reads and rewrites the preset file on every operation.
type Store struct {
	path  string
	mutex *sync.Mutex
}

// NewStore returns a Store backed by path. The file need not exist yet.
func NewStore(path string) Store {
	return Store{path: path, mutex: &sync.Mutex{}}
}

// Path returns the backing file path.
func (store Store) Path() string {
	return store.path
}

// List returns presets in their stored order.
func (store Store) List() ([]Preset, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.load()
}

// Get finds a preset by identifier, falling back to an exact name match.
func (store Store) Get(reference string) (Preset, error) {
	presets, err := store.List()
	if err != nil {
		return Preset{}, err
	}
	index := findPreset(presets, reference)
	if index < 0 {
		return Preset{}, fmt.Errorf(errorPresetIDFormat, ErrPresetNotFound, reference)
	}
	return presets[index], nil
}

// Save appends a new preset with a fresh identifier.
func (store Store) Save(name string, fileTemplate string, promptTemplate string) (Preset, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return Preset{}, ErrBlankName
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	presets, err := store.load()
	if err != nil {
		return Preset{}, err
	}
	preset := Preset{
		ID:             uuid.NewString(),
		Name:           trimmedName,
		FileTemplate:   fileTemplate,
		PromptTemplate: promptTemplate,
	}
	if err := store.write(append(presets, preset)); err != nil {
		return Preset{}, err
	}
	return preset, nil
}

// Delete removes the referenced preset.
func (store Store) Delete(reference string) error {
	return store.mutate(reference, func(presets []Preset, index int) ([]Preset, error) {
		return append(presets[:index], presets[index+1:]...), nil
	})
}

// Rename changes the name of the referenced preset.
func (store Store) Rename(reference string, name string) error {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return ErrBlankName
	}
	return store.mutate(reference, func(presets []Preset, index int) ([]Preset, error) {
		presets[index].Name = trimmedName
		return presets, nil
	})
}

// Reorder arranges presets in the order of references, which must name every preset once.
func (store Store) Reorder(references []string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	presets, err := store.load()
	if err != nil {
		return err
	}
	if len(references) != len(presets) {
		return fmt.Errorf(errorReorderFormat, len(presets))
	}
	reordered := make([]Preset, 0, len(presets))
	used := make(map[int]struct{}, len(presets))
	for _, reference := range references {
		index := findPreset(presets, reference)
		if index < 0 {
			return fmt.Errorf(errorPresetIDFormat, ErrPresetNotFound, reference)
		}
		if _, duplicate := used[index]; duplicate {
			return fmt.Errorf(errorReorderFormat, len(presets))
		}
		used[index] = struct{}{}
		reordered = append(reordered, presets[index])
	}
	return store.write(reordered)
}

func (store Store) mutate(reference string, change func([]Preset, int) ([]Preset, error)) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	presets, err := store.load()
	if err != nil {
		return err
	}
	index := findPreset(presets, reference)
	if index < 0 {
		return fmt.Errorf(errorPresetIDFormat, ErrPresetNotFound, reference)
	}
	updated, changeErr := change(presets, index)
	if changeErr != nil {
		return changeErr
	}
	return store.write(updated)
}

func (store Store) load() ([]Preset, error) {
	content, readErr := os.ReadFile(store.path)
	if readErr != nil {
		if errors.Is(readErr, fs.ErrNotExist) {
			return []Preset{}, nil
		}
		return nil, fmt.Errorf(errorReadStoreFormat, store.path, readErr)
	}
	var decoded document
	if err := yaml.Unmarshal(content, &decoded); err != nil {
		return nil, fmt.Errorf(errorDecodeStoreFormat, store.path, err)
	}
	if decoded.Presets == nil {
		return []Preset{}, nil
	}
	return decoded.Presets, nil
}

func (store Store) write(presets []Preset) error {
	encoded, encodeErr := yaml.Marshal(document{Presets: presets})
	if encodeErr != nil {
		return fmt.Errorf(errorEncodeStoreFormat, encodeErr)
	}
	directory := filepath.Dir(store.path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf(errorCreateDirFormat, directory, err)
	}
	if err := os.WriteFile(store.path, encoded, 0o600); err != nil {
		return fmt.Errorf(errorWriteStoreFormat, store.path, err)
	}
	return nil
}

func findPreset(presets []Preset, reference string) int {
	for index, preset := range presets {
		if preset.ID == reference {
			return index
		}
	}
	for index, preset := range presets {
		if preset.Name == reference {
			return index
		}
	}
	return -1
}
