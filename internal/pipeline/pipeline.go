package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kingrea/canvas-grader/internal/archive"
	"github.com/kingrea/canvas-grader/internal/canvas"
	"github.com/kingrea/canvas-grader/internal/inspect"
	"github.com/kingrea/canvas-grader/internal/logbook"
	"github.com/kingrea/canvas-grader/internal/roster"
)

// Downloader fetches attachment bytes.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Reviewer hands the terminal to the grader.
type Reviewer interface {
	Acknowledge() error
	OpenFiles(paths []string) error
	OpenShell(dir string) error
}

// Extractor unpacks archive bytes into a directory.
type Extractor func(data []byte, dest string) error

// DownloadedSubmission is an extracted submission waiting for review. The
// directory is left in place after the session.
type DownloadedSubmission struct {
	Profile canvas.UserProfile
	Dir     string
}

// Options tune a Pipeline.
type Options struct {
	// Workspace is the directory per-student folders are created in.
	Workspace string
	// KeepGoing continues past failed entries and returns them joined.
	KeepGoing bool
	// Out receives progress lines and rendered reports.
	Out io.Writer
	// Render formats a report for Out. Defaults to a plain text listing.
	Render func(name string, report inspect.Report) string
	// OnStage observes every stage transition.
	OnStage func(name string, stage Stage)
	// Extract overrides archive extraction.
	Extract Extractor
}

// Summary counts the outcome of a Run.
type Summary struct {
	Selected  int
	Completed int
	Failed    int
}

// Pipeline processes selected roster entries one at a time.
type Pipeline struct {
	downloader Downloader
	reviewer   Reviewer
	logbook    *logbook.Logbook
	opts       Options
}

// New wires a pipeline. A nil logbook disables journaling.
func New(downloader Downloader, reviewer Reviewer, book *logbook.Logbook, opts Options) (*Pipeline, error) {
	if downloader == nil {
		return nil, fmt.Errorf("pipeline: downloader is required")
	}
	if reviewer == nil {
		return nil, fmt.Errorf("pipeline: reviewer is required")
	}
	if opts.Workspace == "" {
		opts.Workspace = "."
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Render == nil {
		opts.Render = PlainReport
	}
	if opts.Extract == nil {
		opts.Extract = archive.ExtractBytes
	}
	return &Pipeline{downloader: downloader, reviewer: reviewer, logbook: book, opts: opts}, nil
}

// Run takes each selected slot in order and processes it. Without KeepGoing
// the first failure ends the run.
func (p *Pipeline) Run(ctx context.Context, slots *roster.Slots, selections []int) (Summary, error) {
	summary := Summary{Selected: len(selections)}
	var failures []error
	for _, index := range selections {
		err := p.processSlot(ctx, slots, index)
		if err == nil {
			summary.Completed++
			continue
		}
		summary.Failed++
		p.logbook.Error("%v", err)
		if !p.opts.KeepGoing {
			p.logSummary(summary)
			return summary, err
		}
		fmt.Fprintf(p.opts.Out, "Skipping after error: %v\n", err)
		failures = append(failures, err)
	}
	p.logSummary(summary)
	return summary, errors.Join(failures...)
}

func (p *Pipeline) processSlot(ctx context.Context, slots *roster.Slots, index int) error {
	entry, err := slots.Take(index)
	if err != nil {
		return p.failed(fail(StageFetched, KindInvalidSelection, "", err))
	}
	downloaded, err := p.Download(ctx, entry)
	if err != nil {
		return err
	}
	return p.Grade(downloaded)
}

// Download retrieves the entry's first attachment and extracts it into the
// entry's directory under the workspace.
func (p *Pipeline) Download(ctx context.Context, entry roster.UserSubmission) (DownloadedSubmission, error) {
	name := entry.Name()
	p.transition(name, StageFetched)
	if len(entry.Submission.Attachments) == 0 {
		return DownloadedSubmission{}, p.failed(fail(StageFetched, KindAttachmentNotFound, name, ErrAttachmentNotFound))
	}
	attachment := entry.Submission.Attachments[0]

	p.transition(name, StageDownloading)
	fmt.Fprintf(p.opts.Out, "Downloading %s (%s)\n", name, attachmentLabel(attachment))
	data, err := p.downloader.Download(ctx, attachment.URL)
	if err != nil {
		kind := classify(err)
		if kind == KindFilesystem {
			kind = KindNetwork
		}
		return DownloadedSubmission{}, p.failed(fail(StageDownloading, kind, name, err))
	}

	dir := filepath.Join(p.opts.Workspace, DirName(name))
	if err := p.extract(data, dir); err != nil {
		return DownloadedSubmission{}, p.failed(fail(StageDownloading, classify(err), name, err))
	}
	p.transition(name, StageExtracted)
	p.logbook.Info("%s extracted %s into %s", name, humanize.Bytes(uint64(len(data))), dir)
	return DownloadedSubmission{Profile: entry.Profile, Dir: dir}, nil
}

// extract runs archive extraction on its own goroutine so the caller's
// goroutine stays free while a large archive inflates.
func (p *Pipeline) extract(data []byte, dir string) error {
	done := make(chan error, 1)
	go func() {
		done <- p.opts.Extract(data, dir)
	}()
	return <-done
}

// Grade inspects an extracted submission, shows the report, then opens the
// flagged files and a shell for review.
func (p *Pipeline) Grade(d DownloadedSubmission) error {
	name := d.Profile.SortableName
	p.transition(name, StageInspecting)
	files, err := inspect.Collect(d.Dir)
	if err != nil {
		return p.failed(fail(StageInspecting, KindFilesystem, name, err))
	}
	report := inspect.Inspect(files, name)
	fmt.Fprint(p.opts.Out, p.opts.Render(name, report))
	if failures := report.Failures(); failures > 0 {
		p.logbook.Warn("%s: %d check(s) failed", name, failures)
	}

	if err := p.reviewer.Acknowledge(); err != nil {
		return p.failed(fail(StageInspecting, KindReview, name, err))
	}
	if err := p.reviewer.OpenFiles(report.Review); err != nil {
		return p.failed(fail(StageInspecting, KindReview, name, err))
	}
	if err := p.reviewer.OpenShell(d.Dir); err != nil {
		return p.failed(fail(StageInspecting, KindReview, name, err))
	}
	p.transition(name, StageDone)
	return nil
}

func (p *Pipeline) transition(name string, stage Stage) {
	p.logbook.Info("%s: %s", name, stage)
	if p.opts.OnStage != nil {
		p.opts.OnStage(name, stage)
	}
}

func (p *Pipeline) failed(f *Failure) *Failure {
	p.transition(f.Name, StageFailed)
	return f
}

func (p *Pipeline) logSummary(s Summary) {
	p.logbook.Info("Run finished: %d selected, %d completed, %d failed", s.Selected, s.Completed, s.Failed)
}

// DirName turns a sortable name into a single path element.
func DirName(sortableName string) string {
	name := strings.TrimSpace(sortableName)
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

func attachmentLabel(a canvas.Attachment) string {
	label := a.DisplayName
	if label == "" {
		label = a.Filename
	}
	if label == "" {
		label = "attachment"
	}
	if a.Size > 0 {
		label += ", " + humanize.Bytes(uint64(a.Size))
	}
	return label
}

// PlainReport renders a report without styling.
func PlainReport(name string, report inspect.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Grading %s\n", name)
	b.WriteString("File contains name:\n")
	for _, c := range report.Names {
		fmt.Fprintf(&b, "\t%s %s\n", mark(c.Pass), c.File)
	}
	b.WriteString("File contains readme disclaimer:\n")
	for _, c := range report.Disclaimers {
		fmt.Fprintf(&b, "\t%s %s\n", mark(c.Pass), c.File)
	}
	return b.String()
}

func mark(pass bool) string {
	if pass {
		return "✔"
	}
	return "✗"
}
