package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DefaultDotEnvFile is the file read by LoadDotEnv and written by the setup command.
const DefaultDotEnvFile = ".env"

// LoadDotEnv loads variables from path into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultDotEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// WriteDotEnv writes the API key and output settings to path with
// owner-only permissions.
func WriteDotEnv(path, apiKey, outputDir string) error {
	if path == "" {
		path = DefaultDotEnvFile
	}
	values := map[string]string{
		"CAPTIONS_API_KEY": apiKey,
	}
	if outputDir != "" {
		values["OUTPUT_DIR"] = outputDir
	}

	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte("# Captions API configuration\n"+content+"\n"), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
