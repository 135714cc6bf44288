package chip8_test

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/guslan/chip8"
)

func TestReadProgram(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "jump.ch8")
	if err := os.WriteFile(path, []byte{0x12, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}
	program, err := chip8.ReadProgram(path)
	if err != nil {
		t.Fatalf(`ReadProgram() returned an error %v`, err)
	}
	if !bytes.Equal(program, []byte{0x12, 0x00}) {
		t.Fatalf(`ReadProgram() = %X`, program)
	}

	large := filepath.Join(dir, "large.ch8")
	if err := os.WriteFile(large, make([]byte, chip8.MaxProgramSize+1), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := chip8.ReadProgram(large); !errors.Is(err, chip8.ErrOutOfBounds) {
		t.Fatalf(`ReadProgram() = %v, expected ErrOutOfBounds`, err)
	}

	if _, err := chip8.ReadProgram(filepath.Join(dir, "missing.ch8")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf(`ReadProgram() = %v, expected fs.ErrNotExist`, err)
	}

	if _, err := chip8.ReadProgram(dir); err == nil {
		t.Fatalf(`ReadProgram() of a directory returned no error`)
	}
}
