package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MartinDM/data-app/internal/domain"
)

// DatasetFile is the file name WritePeople produces.
const DatasetFile = "people.json"

// WritePeople serializes the records into people.json under dir.
func WritePeople(people []domain.Person, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, DatasetFile)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(people); err != nil {
		return "", fmt.Errorf("encode json for %s: %w", path, err)
	}
	return path, nil
}

// ReadPeople loads a people.json file and validates every record.
func ReadPeople(path string) ([]domain.Person, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var people []domain.Person
	if err := json.NewDecoder(file).Decode(&people); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	v := NewValidator()
	for _, p := range people {
		if err := v.Validate(p); err != nil {
			return nil, fmt.Errorf("record %s in %s: %w", p.ID, path, err)
		}
	}
	return people, nil
}
