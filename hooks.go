package chip8

import (
	"fmt"
	"log/slog"
)

type Hook func(cpu *Cpu)

// AddBeforeCycleHook adds a hook that will run before every cycle of the CPU
func (r *Runner) AddBeforeCycleHook(h Hook) int {
	r.beforeCycleHooks = append(r.beforeCycleHooks, h)

	return len(r.beforeCycleHooks)
}

// AddAfterCycleHook adds a hook that will run after every cycle of the CPU
func (r *Runner) AddAfterCycleHook(h Hook) int {
	r.afterCycleHooks = append(r.afterCycleHooks, h)

	return len(r.afterCycleHooks)
}

// AddAfterFrameHook adds a hook that will run after every 60 Hz frame
func (r *Runner) AddAfterFrameHook(h Hook) int {
	r.afterFrameHooks = append(r.afterFrameHooks, h)

	return len(r.afterFrameHooks)
}

// AddErrorHook adds a hook that will run when the CPU halts on an error.
// cpu.Err() holds the error.
func (r *Runner) AddErrorHook(h Hook) int {
	r.errorHooks = append(r.errorHooks, h)

	return len(r.errorHooks)
}

func (r *Runner) runHooks(hooks []Hook) {
	for _, h := range hooks {
		h(r.Cpu)
	}
}

// TraceHook logs the last executed instruction at debug level.
// It is meant to run after every cycle.
func TraceHook(cpu *Cpu) {
	slog.Debug("cycle",
		slog.String("opcode", fmt.Sprintf("%04X", cpu.Opcode)),
		slog.String("next", fmt.Sprintf("%03X", cpu.Pc)),
		slog.Uint64("i", uint64(cpu.I)),
	)
}
