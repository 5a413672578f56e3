package runner

import (
	"fmt"
	"slices"

	"github.com/svintsoff78/krepko/internal/flow"
)

// Mode controls how draft flows affect the exit code.
type Mode string

const (
	// ModeDev fails only on non-draft failures.
	ModeDev Mode = "dev"
	// ModeCI behaves like ModeDev.
	ModeCI Mode = "ci"
	// ModeStrict also fails on draft failures and on the mere presence of drafts.
	ModeStrict Mode = "strict"
)

// DefaultMode is used when no mode is configured.
const DefaultMode = ModeCI

// ValidModes lists the accepted mode names.
var ValidModes = []string{string(ModeDev), string(ModeCI), string(ModeStrict)}

// ParseMode validates a mode name. An empty name yields DefaultMode.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return DefaultMode, nil
	}
	if !slices.Contains(ValidModes, s) {
		return "", fmt.Errorf("invalid mode %q: must be one of %v", s, ValidModes)
	}
	return Mode(s), nil
}

// Exit codes produced by a run.
const (
	ExitPass = 0
	ExitFail = 1
)

// ExitCode reduces flow results to a process exit code.
//
// Results are scanned in order. The first non-draft failure yields ExitFail.
// Under ModeStrict a failing draft also yields ExitFail, and when nothing
// failed the presence of any draft still does.
func ExitCode(mode Mode, results []flow.FlowResult) int {
	for _, r := range results {
		if r.Passed {
			continue
		}
		if !r.IsDraft {
			return ExitFail
		}
		if mode == ModeStrict {
			return ExitFail
		}
	}

	if mode == ModeStrict {
		for _, r := range results {
			if r.IsDraft {
				return ExitFail
			}
		}
	}

	return ExitPass
}
