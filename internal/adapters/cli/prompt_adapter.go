package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/example/nusup/internal/core/title"
	"github.com/example/nusup/internal/ports/secondary"
)

// BypassPrompter asks the user whether to retry an import with
// signature checks disabled. Anything but an explicit yes declines.
type BypassPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewBypassPrompter creates a prompter reading answers from in.
func NewBypassPrompter(in io.Reader, out io.Writer) *BypassPrompter {
	return &BypassPrompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

var _ secondary.BypassPrompter = (*BypassPrompter)(nil)

// Confirm implements secondary.BypassPrompter.
func (p *BypassPrompter) Confirm(id title.ID) bool {
	fmt.Fprintf(p.out, "%s Title %s has an untrusted signature.\n",
		color.New(color.FgYellow).Sprint("!"), id.Hex())
	fmt.Fprint(p.out, "Import it with signature checks disabled? [y/N] ")

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
