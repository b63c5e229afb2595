package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// console reads the password and the prepare confirmation from the same input.
type console struct {
	in     io.Reader
	lines  *bufio.Reader
	prompt io.Writer
}

func newConsole(in io.Reader, prompt io.Writer) *console {
	return &console{in: in, lines: bufio.NewReader(in), prompt: prompt}
}

func (c *console) terminal() (int, bool) {
	file, ok := c.in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(file.Fd())
	return fd, term.IsTerminal(fd)
}

func (c *console) readLine() (string, error) {
	line, err := c.lines.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Password reads the password without echo on a terminal, otherwise it reads one line.
func (c *console) Password() (string, error) {
	fd, isTerminal := c.terminal()
	if !isTerminal {
		password, err := c.readLine()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return password, nil
	}

	fmt.Fprint(c.prompt, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(c.prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

// Prepare waits until the user presses enter.
func (c *console) Prepare(ctx context.Context) error {
	fmt.Fprintln(c.prompt, "Press Enter when ready.")

	done := make(chan error, 1)
	go func() {
		_, err := c.readLine()
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
