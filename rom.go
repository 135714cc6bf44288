package chip8

import (
	"fmt"
	"os"
)

// ReadProgram reads a ROM from the file system.
// Files that cannot fit into memory are rejected with ErrOutOfBounds before
// being read.
func ReadProgram(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading program %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("reading program %q: is a directory", path)
	}
	if info.Size() > MaxProgramSize {
		return nil, fmt.Errorf("reading program %q: %w: %d bytes, at most %d bytes fit", path, ErrOutOfBounds, info.Size(), MaxProgramSize)
	}

	program, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program %q: %w", path, err)
	}

	return program, nil
}
