package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"xray-ip-diag/internal/config"
	"xray-ip-diag/internal/domain"
)

var (
	ErrInvalidPort = errors.New("invalid port number")
	ErrEmptyLink   = errors.New("share link is empty")
	ErrInputClosed = fmt.Errorf("failed to read input: %w", io.ErrUnexpectedEOF)
)

type line struct {
	text string
	err  error
}

// Prompter asks for the interactive inputs of a run. Reads honour context
// cancellation, so a pending prompt does not block shutdown.
type Prompter struct {
	out         io.Writer
	lines       chan line
	defaultPort int
	label       *color.Color
}

type Options struct {
	Input   io.Reader
	Output  io.Writer
	NoColor bool
}

func NewPrompter(opts Options, cfg *config.Config) *Prompter {
	label := color.New(color.FgYellow)
	if opts.NoColor {
		label.DisableColor()
	}

	p := &Prompter{
		out:         opts.Output,
		lines:       make(chan line),
		defaultPort: cfg.DefaultPort,
		label:       label,
	}
	go p.scan(opts.Input)
	return p
}

func (p *Prompter) scan(in io.Reader) {
	defer close(p.lines)

	reader := bufio.NewReader(in)
	for {
		text, err := reader.ReadString('\n')
		if text != "" || err == nil {
			p.lines <- line{text: text}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			p.lines <- line{err: fmt.Errorf("failed to read input: %w", err)}
			return
		}
	}
}

func (p *Prompter) ask(ctx context.Context, question string) (string, error) {
	if question != "" {
		p.label.Fprint(p.out, question)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-p.lines:
		if !ok {
			return "", ErrInputClosed
		}
		if l.err != nil {
			return "", l.err
		}
		return strings.TrimSpace(l.text), nil
	}
}

// Port reads the local listener port. An empty answer selects the default.
func (p *Prompter) Port(ctx context.Context) (int, error) {
	answer, err := p.ask(ctx, fmt.Sprintf("Enter the test port (%d-%d, Enter=%d): ",
		config.MinPort, config.MaxPort, p.defaultPort))
	if err != nil {
		return 0, err
	}

	if answer == "" {
		return p.defaultPort, nil
	}

	port, err := strconv.Atoi(answer)
	if err != nil {
		return 0, domain.NewStepError(domain.KindInput, fmt.Sprintf("%q is not a number", answer), ErrInvalidPort)
	}
	if err := config.ValidatePort(port); err != nil {
		return 0, domain.NewStepError(domain.KindInput, err.Error(), ErrInvalidPort)
	}
	return port, nil
}

// Link reads the share link.
func (p *Prompter) Link(ctx context.Context) (string, error) {
	fmt.Fprintln(p.out)
	answer, err := p.ask(ctx, "Paste the share link (VLESS):\n")
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", domain.NewStepError(domain.KindInput, "no link given", ErrEmptyLink)
	}
	return answer, nil
}

// ExecutablePath reads a path to the xray binary. Surrounding quotes, as
// left by shell drag-and-drop, are removed.
func (p *Prompter) ExecutablePath(ctx context.Context) (string, error) {
	answer, err := p.ask(ctx, "Enter the full path to xray: ")
	if err != nil {
		return "", err
	}
	return strings.Trim(answer, `"'`), nil
}
