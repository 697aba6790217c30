package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/peterh/liner"

	"vgtool/pkg/cpu"
)

var errQuit = errors.New("stopped by operator")

type pauseAction int

const (
	actStep pauseAction = iota
	actContinue
	actQuit
)

func parsePause(line string) pauseAction {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "c", "cont", "continue":
		return actContinue
	case "q", "quit", "exit":
		return actQuit
	}
	return actStep
}

// pauser is a tracer that prompts the operator on the terminal.
type pauser struct {
	ln       *liner.State
	resumed  bool
	promptFn func(string) (string, error)
}

func newPauser() *pauser {
	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)
	return &pauser{ln: ln, promptFn: ln.Prompt}
}

func (p *pauser) Trace(c *cpu.CPU) error {
	if p.resumed {
		return nil
	}
	line, err := p.promptFn(fmt.Sprintf("step %d pc %d [enter/c/q]> ", c.Steps, c.PC))
	if err != nil {
		// ctrl-c and EOF both end the run
		return errQuit
	}
	switch parsePause(line) {
	case actContinue:
		p.resumed = true
	case actQuit:
		return errQuit
	}
	if p.ln != nil && strings.TrimSpace(line) != "" {
		p.ln.AppendHistory(line)
	}
	return nil
}

func (p *pauser) Close() error {
	if p.ln == nil {
		return nil
	}
	return p.ln.Close()
}
