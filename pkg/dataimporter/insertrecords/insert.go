package insertrecords

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ParseDefinitions decodes every YAML document in the reader
func ParseDefinitions(reader io.Reader) ([]InsertDefinition, error) {
	decoder := yaml.NewDecoder(reader)

	var definitions []InsertDefinition
	for {
		var insertDefinition InsertDefinition
		err := decoder.Decode(&insertDefinition)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if err := insertDefinition.Validate(); err != nil {
			return nil, err
		}

		definitions = append(definitions, insertDefinition)
	}

	return definitions, nil
}

// Insert upserts the records in every file under directory
func Insert(ctx context.Context, directory string) (int, error) {
	inserted := 0

	err := filepath.Walk(directory,
		func(path string, fileInfo os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if fileInfo.IsDir() {
				return nil
			}

			log.Debug().Str("path", path).Msg("Loading insert-record file")

			recordsYaml, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			definitions, err := ParseDefinitions(bytes.NewReader(recordsYaml))
			if err != nil {
				return err
			}

			for _, definition := range definitions {
				if err := definition.Upsert(ctx); err != nil {
					return err
				}
				inserted++
			}

			return nil
		})

	return inserted, err
}
