// Package deps checks that the external media tools are installed.
package deps

import (
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"peiyin/internal/config"
)

// Requirement defines an external binary the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Resolved    string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries named in cfg.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpegBinary, Description: "Audio extraction, muting, mixing and stacking"},
		{Name: "FFprobe", Command: cfg.Tools.FFprobeBinary, Description: "Validates uploaded dubbing media"},
		{Name: "Demucs", Command: cfg.Tools.DemucsBinary, Description: "Separates vocals from accompaniment"},
	}
}

// Check evaluates the requirements from cfg whose names are given, or all of
// them when names is empty.
func Check(cfg *config.Config, names ...string) []Status {
	reqs := Requirements(cfg)
	if len(names) == 0 {
		return CheckBinaries(reqs)
	}
	selected := make([]Requirement, 0, len(names))
	for _, req := range reqs {
		if slices.Contains(names, req.Name) {
			selected = append(selected, req)
		}
	}
	return CheckBinaries(selected)
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch resolved, err := exec.LookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Resolved = resolved
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
