package envconf

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadWithDotEnv reads the given .env files (default ".env") into the process
// environment, then calls Load. Missing files are ignored; variables already
// present in the environment win over file values.
func LoadWithDotEnv(dst any, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	return Load(dst)
}
