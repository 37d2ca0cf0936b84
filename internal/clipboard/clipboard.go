// Package clipboard copies text to the system clipboard through the
// platform's command-line tool.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

var (
	ErrToolNotFound  = errors.New("clipboard tool not found")
	ErrNothingToCopy = errors.New("nothing to copy")
)

type Command struct {
	Path string
	Args []string
}

type candidate struct {
	name string
	args []string
}

var candidates = map[string][]candidate{
	"darwin":  {{name: "pbcopy"}},
	"linux":   {{name: "wl-copy"}, {name: "xclip", args: []string{"-selection", "clipboard"}}, {name: "xsel", args: []string{"--clipboard", "--input"}}},
	"freebsd": {{name: "xclip", args: []string{"-selection", "clipboard"}}},
	"windows": {{name: "clip.exe"}},
}

// SelectCommand returns the first tool for goos that lookPath can find.
func SelectCommand(goos string, lookPath func(string) (string, error)) (Command, error) {
	for _, c := range candidates[goos] {
		path, err := lookPath(c.name)
		if err != nil {
			continue
		}
		return Command{Path: path, Args: c.args}, nil
	}
	return Command{}, ErrToolNotFound
}

func Copy(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNothingToCopy
	}
	cmdDef, err := SelectCommand(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, cmdDef.Path, cmdDef.Args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("clipboard command failed: %w: %s", err, msg)
		}
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}
