// Package review hands the terminal to external programs: the grader's
// editor for each flagged file, then an interactive shell in the submission
// directory. Every program runs to completion before control returns.
package review

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Reviewer launches the editor and shell with the controlling terminal's I/O.
type Reviewer struct {
	Editor string
	Shell  string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// run executes a prepared command; tests replace it.
	run func(*exec.Cmd) error
}

// New builds a Reviewer bound to the process's stdio.
func New(editor, shell string) *Reviewer {
	return &Reviewer{
		Editor: editor,
		Shell:  shell,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		run:    (*exec.Cmd).Run,
	}
}

// Acknowledge waits for the grader to press enter.
func (r *Reviewer) Acknowledge() error {
	fmt.Fprintln(r.Stdout, "Press enter to continue")
	_, err := bufio.NewReader(r.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("review: wait for enter: %w", err)
	}
	return nil
}

// OpenFiles opens each path in the editor, one process at a time.
func (r *Reviewer) OpenFiles(paths []string) error {
	argv := strings.Fields(r.Editor)
	if len(argv) == 0 {
		return fmt.Errorf("review: no editor configured")
	}
	for _, path := range paths {
		args := append(append([]string{}, argv[1:]...), path)
		cmd := exec.Command(argv[0], args...)
		if err := r.exec(cmd); err != nil {
			return fmt.Errorf("review: editor %s %s: %w", argv[0], path, err)
		}
	}
	return nil
}

// OpenShell starts an interactive shell rooted at dir.
func (r *Reviewer) OpenShell(dir string) error {
	argv := strings.Fields(r.Shell)
	if len(argv) == 0 {
		return fmt.Errorf("review: no shell configured")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	if err := r.exec(cmd); err != nil {
		return fmt.Errorf("review: shell %s in %s: %w", argv[0], dir, err)
	}
	return nil
}

func (r *Reviewer) exec(cmd *exec.Cmd) error {
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	run := r.run
	if run == nil {
		run = (*exec.Cmd).Run
	}
	err := run(cmd)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// editors and shells report the user's last command; only a failure
		// to start counts.
		return nil
	}
	return err
}
