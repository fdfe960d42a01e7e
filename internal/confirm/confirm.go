package confirm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	pkgstrings "jenkey/pkg/strings"
)

// Confirmer asks the operator to approve an action on a list of items.
type Confirmer interface {
	Confirm(ctx context.Context, question string, items []string) (bool, error)
}

// Func adapts a function to Confirmer.
type Func func(ctx context.Context, question string, items []string) (bool, error)

// Confirm calls f.
func (f Func) Confirm(ctx context.Context, question string, items []string) (bool, error) {
	return f(ctx, question, items)
}

// Auto returns a Confirmer that always gives answer without prompting.
func Auto(answer bool) Confirmer {
	return Func(func(context.Context, string, []string) (bool, error) {
		return answer, nil
	})
}

// IsYes reports whether an answer confirms. Only "y" and "yes" do, in any
// case.
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// Terminal prompts on an interactive terminal through readline.
type Terminal struct {
	// Stdin and Stdout default to the process streams when nil.
	Stdin  io.ReadCloser
	Stdout io.Writer
}

// Confirm prints the items, then asks question with a (y/N) prompt. EOF and
// Ctrl+C count as "no".
func (t *Terminal) Confirm(ctx context.Context, question string, items []string) (bool, error) {
	cfg := &readline.Config{
		Prompt:          question + " (y/N) ",
		InterruptPrompt: "^C",
		EOFPrompt:       "no",
	}
	if t.Stdin != nil {
		cfg.Stdin = t.Stdin
	}
	if t.Stdout != nil {
		cfg.Stdout = t.Stdout
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return false, fmt.Errorf("failed to create prompt: %w", err)
	}
	defer rl.Close()

	if len(items) > 0 {
		fmt.Fprintln(rl.Stdout(), pkgstrings.Bullets(items, "  "))
	}

	type answer struct {
		line string
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		line, err := rl.Readline()
		done <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-done:
		if errors.Is(a.err, readline.ErrInterrupt) || errors.Is(a.err, io.EOF) {
			return false, nil
		}
		if a.err != nil {
			return false, fmt.Errorf("failed to read answer: %w", a.err)
		}
		return IsYes(a.line), nil
	}
}
