package datastore

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// TableHelp documents one table and its columns.
type TableHelp struct {
	Description string            `yaml:"description" json:"description"`
	Columns     map[string]string `yaml:"columns,omitempty" json:"columns,omitempty"`
}

// Dictionary maps table names to their documentation.
type Dictionary map[string]TableHelp

// LoadDictionary reads a YAML data dictionary:
//
//	jobs:
//	  description: listings for jobs to work on games
//	  columns:
//	    jobType: the type of job
func LoadDictionary(path string) (Dictionary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data dictionary: %w", err)
	}
	return ParseDictionary(b)
}

// ParseDictionary decodes a YAML data dictionary.
func ParseDictionary(b []byte) (Dictionary, error) {
	var dict Dictionary
	if err := yaml.Unmarshal(b, &dict); err != nil {
		return nil, fmt.Errorf("failed to parse data dictionary: %w", err)
	}
	for table, help := range dict {
		if help.Description == "" && len(help.Columns) == 0 {
			return nil, fmt.Errorf("data dictionary entry %q is empty", table)
		}
	}
	return dict, nil
}

// Table returns the documentation of table.
func (d Dictionary) Table(table string) (TableHelp, bool) {
	help, ok := d[table]
	return help, ok
}
