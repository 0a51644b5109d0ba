// Package deps inventories the external binaries the pipeline shells out to
// and resolves them against the current PATH.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement describes one external binary and why the pipeline needs it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement resolved against the current PATH.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Pdftotext returns the requirement for the poppler text extractor, the one
// hard external tool of the extract stage. The command comes from config so
// operators can point at a non-PATH install.
func Pdftotext(command string) Requirement {
	return Requirement{
		Name:        "pdftotext",
		Command:     command,
		Description: "Required to extract text from PDF documents (poppler-utils)",
	}
}

// Check resolves the requirement. A blank command and a missing binary both
// report unavailable, with the distinction carried in Detail.
func (r Requirement) Check() Status {
	command := strings.TrimSpace(r.Command)
	status := Status{
		Name:        r.Name,
		Command:     command,
		Description: strings.TrimSpace(r.Description),
		Optional:    r.Optional,
	}
	if command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", command)
		return status
	}
	status.Available = true
	return status
}

// CheckBinaries resolves every requirement in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = req.Check()
	}
	return results
}
