package cpu

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"vgtool/pkg/isa"
)

// State is the JSON-serializable snapshot of the machine.
type State struct {
	PC     int                   `json:"pc"`
	Regs   [isa.NumRegisters]int `json:"regs"`
	ZF     bool                  `json:"zf"`
	CF     bool                  `json:"cf"`
	SP     int                   `json:"sp"`
	BP     int                   `json:"bp"`
	Steps  int                   `json:"steps"`
	Halted bool                  `json:"halted"`
	Stack  []int                 `json:"stack"`
	VRAM   []int                 `json:"vram"`
}

// Snapshot copies the current machine state.
func (c *CPU) Snapshot() State {
	return State{
		PC:     c.PC,
		Regs:   c.Regs,
		ZF:     c.ZF,
		CF:     c.CF,
		SP:     c.SP,
		BP:     c.BP,
		Steps:  c.Steps,
		Halted: c.Halted,
		Stack:  append([]int(nil), c.Stack...),
		VRAM:   append([]int(nil), c.VRAM...),
	}
}

// Restore replaces the machine state with s. The stack and vram sizes must
// match this machine's.
func (c *CPU) Restore(s State) error {
	if len(s.Stack) != len(c.Stack) {
		return fmt.Errorf("restore: stack has %d slots, machine has %d", len(s.Stack), len(c.Stack))
	}
	if len(s.VRAM) != len(c.VRAM) {
		return fmt.Errorf("restore: vram has %d cells, machine has %d", len(s.VRAM), len(c.VRAM))
	}
	if s.SP < 0 || s.SP >= len(s.Stack) {
		return fmt.Errorf("restore: %w: sp %d", ErrStackBounds, s.SP)
	}
	c.PC = s.PC
	c.Regs = s.Regs
	c.ZF, c.CF = s.ZF, s.CF
	c.SP, c.BP = s.SP, s.BP
	c.Steps = s.Steps
	c.Halted = s.Halted
	copy(c.Stack, s.Stack)
	copy(c.VRAM, s.VRAM)
	return nil
}

// WriteSnapshot writes the state as indented JSON.
func (c *CPU) WriteSnapshot(w io.Writer) error {
	data, err := json.MarshalIndent(c.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cpu_state: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ReadSnapshot decodes a state written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (State, error) {
	var s State
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return State{}, fmt.Errorf("unmarshal cpu_state: %w", err)
	}
	return s, nil
}

// HibernateToBytes packs the machine state and the loaded program into an
// in-memory ZIP archive.
func (c *CPU) HibernateToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	var state bytes.Buffer
	if err := c.WriteSnapshot(&state); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "cpu_state.json", state.Bytes()); err != nil {
		return nil, err
	}

	var prog bytes.Buffer
	if err := c.prog.WriteJSON(&prog); err != nil {
		return nil, fmt.Errorf("marshal program: %w", err)
	}
	if err := writeZipEntry(zw, "program.json", prog.Bytes()); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes loads the program from an archive made by
// HibernateToBytes and resumes its saved state.
func (c *CPU) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	progData, err := readZipEntry(fileMap, "program.json")
	if err != nil {
		return err
	}
	prog, err := isa.ReadJSON(bytes.NewReader(progData))
	if err != nil {
		return err
	}

	stateData, err := readZipEntry(fileMap, "cpu_state.json")
	if err != nil {
		return err
	}
	state, err := ReadSnapshot(bytes.NewReader(stateData))
	if err != nil {
		return err
	}

	if err := c.Load(prog); err != nil {
		return err
	}
	return c.Restore(state)
}

// HibernateToFile writes the hibernation archive to path.
func (c *CPU) HibernateToFile(path string) error {
	data, err := c.HibernateToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a hibernation archive from path.
func (c *CPU) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.RestoreFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
