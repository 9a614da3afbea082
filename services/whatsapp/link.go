package wasvc

import (
	"context"
	"os/exec"
	"runtime"

	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core/dispatch"
)

// NewLinkOpener returns the opener for `kind`: "system" opens links on the server host,
// anything else leaves the URI in the outcome for the client to open.
func NewLinkOpener(kind string) dispatch.LinkOpener {
	if kind == "system" {
		return &commandOpener{command: systemOpenCommand()}
	}
	return nopOpener{}
}

type nopOpener struct{}

func (nopOpener) Open(context.Context, string) error { return nil }

type commandOpener struct {
	command []string
}

func systemOpenCommand() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler"}
	}
	return []string{"xdg-open"}
}

func (o *commandOpener) Open(_ context.Context, uri string) error {
	args := append(append([]string{}, o.command[1:]...), uri)
	cmd := exec.Command(o.command[0], args...)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "running %s", o.command[0])
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
