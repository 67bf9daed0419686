// cmd/grader/main.go
//
// This is the entry point for the grader CLI.
// When you run `grader` from any directory, that directory becomes the
// workspace: .grader/ holds config and logs, and every selected student's
// submission is extracted next to it.
//
// Usage:
//   grader                 interactive grading session
//   grader --keep-going    keep grading after a failed submission
//   grader log [N]         print the last N journal lines (default 20)

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mattn/go-isatty"

	"github.com/kingrea/canvas-grader/internal/config"
	"github.com/kingrea/canvas-grader/internal/logbook"
	"github.com/kingrea/canvas-grader/internal/tui"
)

const (
	defaultLogLines = 20
	exitCancelled   = 130
)

type command struct {
	name      string
	keepGoing bool
	logLines  int
}

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	cmd, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "usage: grader [--keep-going] | grader log [N]")
		os.Exit(2)
	}

	if err := config.InitGraderDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .grader directory: %v\n", err)
		os.Exit(1)
	}
	journal := journalPath(cwd)

	if cmd.name == "log" {
		if err := printLog(os.Stdout, journal, cmd.logLines); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// The prompts, editor and shell all need a real terminal.
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		fmt.Fprintln(os.Stderr, "Error: grader needs an interactive terminal on stdin")
		os.Exit(1)
	}

	book, err := logbook.New(journal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening journal: %v\n", err)
		os.Exit(1)
	}

	if err := runSession(cwd, book, cmd.keepGoing); err != nil {
		if errors.Is(err, tui.ErrCancelled) {
			book.Info("session cancelled")
			os.Exit(exitCancelled)
		}
		book.Error("%v", err)
		fmt.Fprintln(os.Stderr, tui.Error(err))
		os.Exit(1)
	}
}

func parseArgs(args []string) (command, error) {
	cmd := command{name: "grade", logLines: defaultLogLines}
	fs := flag.NewFlagSet("grader", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	keepGoing := fs.Bool("keep-going", false, "continue with the next student after a failure")
	if err := fs.Parse(args); err != nil {
		return cmd, err
	}
	cmd.keepGoing = *keepGoing

	rest := fs.Args()
	if len(rest) == 0 {
		return cmd, nil
	}
	if rest[0] != "log" {
		return cmd, fmt.Errorf("unknown command %q", rest[0])
	}
	if cmd.keepGoing {
		return cmd, fmt.Errorf("--keep-going does not apply to log")
	}
	cmd.name = "log"
	switch len(rest) {
	case 1:
	case 2:
		n, err := strconv.Atoi(rest[1])
		if err != nil || n < 1 {
			return cmd, fmt.Errorf("log: line count must be a positive number, got %q", rest[1])
		}
		cmd.logLines = n
	default:
		return cmd, fmt.Errorf("unexpected argument %q", rest[2])
	}
	return cmd, nil
}

func journalPath(projectDir string) string {
	cfg := config.Config{ProjectDir: projectDir, GraderProjectDir: filepath.Join(projectDir, config.GraderDir)}
	return cfg.JournalPath()
}

func printLog(w io.Writer, path string, n int) error {
	book, err := logbook.New(path)
	if err != nil {
		return err
	}
	lines, total := book.Tail(n)
	if total == 0 {
		fmt.Fprintln(w, "Journal is empty.")
		return nil
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	if total > len(lines) {
		fmt.Fprintln(w, tui.Notice("(%d of %d lines)", len(lines), total))
	}
	return nil
}
