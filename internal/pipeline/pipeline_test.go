package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/kingrea/canvas-grader/internal/archive"
	"github.com/kingrea/canvas-grader/internal/canvas"
	"github.com/kingrea/canvas-grader/internal/inspect"
	"github.com/kingrea/canvas-grader/internal/logbook"
	"github.com/kingrea/canvas-grader/internal/roster"
)

type fakeDownloader struct {
	files map[string][]byte
	err   map[string]error
	calls []string
}

func (f *fakeDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.err[url]; ok {
		return nil, err
	}
	data, ok := f.files[url]
	if !ok {
		return nil, fmt.Errorf("no such file %s", url)
	}
	return data, nil
}

type fakeReviewer struct {
	acks   int
	opened [][]string
	shells []string
	err    error
}

func (r *fakeReviewer) Acknowledge() error {
	r.acks++
	return nil
}

func (r *fakeReviewer) OpenFiles(paths []string) error {
	r.opened = append(r.opened, paths)
	return r.err
}

func (r *fakeReviewer) OpenShell(dir string) error {
	r.shells = append(r.shells, dir)
	return nil
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func entry(name, url string) roster.UserSubmission {
	sub := canvas.Submission{ID: len(name)}
	if url != "" {
		sub.Attachments = []canvas.Attachment{{URL: url, Filename: "submission.zip", Size: 1536}}
	}
	return roster.UserSubmission{Submission: sub, Profile: canvas.UserProfile{SortableName: name}}
}

type harness struct {
	pipeline   *Pipeline
	downloader *fakeDownloader
	reviewer   *fakeReviewer
	workspace  string
	out        *bytes.Buffer
	stages     map[string][]Stage
}

func newHarness(t *testing.T, keepGoing bool) *harness {
	t.Helper()
	h := &harness{
		downloader: &fakeDownloader{files: map[string][]byte{}, err: map[string]error{}},
		reviewer:   &fakeReviewer{},
		workspace:  t.TempDir(),
		out:        &bytes.Buffer{},
		stages:     map[string][]Stage{},
	}
	book, err := logbook.New(filepath.Join(t.TempDir(), "journal.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	p, err := New(h.downloader, h.reviewer, book, Options{
		Workspace: h.workspace,
		KeepGoing: keepGoing,
		Out:       h.out,
		OnStage: func(name string, stage Stage) {
			h.stages[name] = append(h.stages[name], stage)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.pipeline = p
	return h
}

func TestRunProcessesEntryEndToEnd(t *testing.T) {
	h := newHarness(t, false)
	h.downloader.files["https://files/doe.zip"] = zipOf(t, map[string]string{
		"hw1/main.c":    "/* Jane Doe */",
		"hw1/README.md": "doe. By submitting this file to Carmen, I certify that I have performed all work.",
		"hw1/notes.txt": "scratch",
	})
	slots := roster.NewSlots([]roster.UserSubmission{entry("Doe, Jane", "https://files/doe.zip")})

	summary, err := h.pipeline.Run(context.Background(), slots, []int{0})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Completed != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	dir := filepath.Join(h.workspace, "Doe, Jane")
	if _, err := os.Stat(filepath.Join(dir, "main.c")); err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if h.reviewer.acks != 1 {
		t.Fatalf("acknowledgements = %d, want 1", h.reviewer.acks)
	}
	wantOpened := []string{filepath.Join(dir, "README.md"), filepath.Join(dir, "main.c")}
	if len(h.reviewer.opened) != 1 || strings.Join(h.reviewer.opened[0], ",") != strings.Join(wantOpened, ",") {
		t.Fatalf("opened = %v, want %v", h.reviewer.opened, wantOpened)
	}
	if len(h.reviewer.shells) != 1 || h.reviewer.shells[0] != dir {
		t.Fatalf("shell dirs = %v", h.reviewer.shells)
	}
	wantStages := []Stage{StageFetched, StageDownloading, StageExtracted, StageInspecting, StageDone}
	if fmt.Sprint(h.stages["Doe, Jane"]) != fmt.Sprint(wantStages) {
		t.Fatalf("stages = %v, want %v", h.stages["Doe, Jane"], wantStages)
	}
	if !strings.Contains(h.out.String(), "✔ main.c") {
		t.Fatalf("report missing name check: %s", h.out.String())
	}
}

func TestMissingAttachmentStopsRunAfterEarlierEntries(t *testing.T) {
	h := newHarness(t, false)
	h.downloader.files["https://files/abe.zip"] = zipOf(t, map[string]string{"main.c": "abe"})
	slots := roster.NewSlots([]roster.UserSubmission{
		entry("Abe, Jo", "https://files/abe.zip"),
		entry("Bly, Nell", ""),
		entry("Cox, Al", "https://files/cox.zip"),
	})

	summary, err := h.pipeline.Run(context.Background(), slots, []int{0, 1, 2})
	if !errors.Is(err, ErrAttachmentNotFound) {
		t.Fatalf("expected ErrAttachmentNotFound, got %v", err)
	}
	if KindOf(err) != KindAttachmentNotFound {
		t.Fatalf("kind = %q", KindOf(err))
	}
	if summary.Completed != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(h.reviewer.shells) != 1 {
		t.Fatalf("first entry should have been reviewed before the failure")
	}
	for _, call := range h.downloader.calls {
		if call == "https://files/cox.zip" {
			t.Fatalf("run continued past a failure without KeepGoing")
		}
	}
	stages := h.stages["Bly, Nell"]
	if stages[len(stages)-1] != StageFailed {
		t.Fatalf("failed entry did not reach StageFailed: %v", stages)
	}
}

func TestKeepGoingCollectsFailures(t *testing.T) {
	h := newHarness(t, true)
	h.downloader.files["https://files/cox.zip"] = zipOf(t, map[string]string{"main.c": "cox"})
	h.downloader.err["https://files/abe.zip"] = fmt.Errorf("%w: connection reset", canvas.ErrRequest)
	slots := roster.NewSlots([]roster.UserSubmission{
		entry("Abe, Jo", "https://files/abe.zip"),
		entry("Bly, Nell", ""),
		entry("Cox, Al", "https://files/cox.zip"),
	})

	summary, err := h.pipeline.Run(context.Background(), slots, []int{0, 1, 2})
	if err == nil {
		t.Fatalf("expected joined failures")
	}
	if !errors.Is(err, canvas.ErrRequest) || !errors.Is(err, ErrAttachmentNotFound) {
		t.Fatalf("joined error lost a cause: %v", err)
	}
	if summary.Completed != 1 || summary.Failed != 2 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestSelectingSameSlotTwiceIsInvalid(t *testing.T) {
	h := newHarness(t, false)
	h.downloader.files["https://files/abe.zip"] = zipOf(t, map[string]string{"main.c": "abe"})
	slots := roster.NewSlots([]roster.UserSubmission{entry("Abe, Jo", "https://files/abe.zip")})

	_, err := h.pipeline.Run(context.Background(), slots, []int{0, 0})
	if !errors.Is(err, roster.ErrInvalidSelection) || KindOf(err) != KindInvalidSelection {
		t.Fatalf("expected invalid selection, got %v", err)
	}
	stages := h.stages[""]
	if len(stages) != 1 || stages[0] != StageFailed {
		t.Fatalf("invalid selection should report a failed stage, got %v", stages)
	}
}

func TestFailureKinds(t *testing.T) {
	statusErr := &canvas.StatusError{Method: "GET", URL: "https://files/x.zip", StatusCode: 404, Status: "404 Not Found"}
	cases := []struct {
		name string
		data []byte
		err  error
		want Kind
	}{
		{name: "status", err: statusErr, want: KindNetwork},
		{name: "opaque download error", err: errors.New("boom"), want: KindNetwork},
		{name: "corrupt archive", data: []byte("not a zip"), want: KindArchive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, false)
			if tc.err != nil {
				h.downloader.err["https://files/x.zip"] = tc.err
			} else {
				h.downloader.files["https://files/x.zip"] = tc.data
			}
			_, err := h.pipeline.Download(context.Background(), entry("Doe, Jane", "https://files/x.zip"))
			if got := KindOf(err); got != tc.want {
				t.Fatalf("kind = %q, want %q (err %v)", got, tc.want, err)
			}
		})
	}
}

func TestExtractionFilesystemErrorIsDistinct(t *testing.T) {
	h := newHarness(t, false)
	h.downloader.files["https://files/x.zip"] = zipOf(t, map[string]string{"main.c": "x"})
	blocker := filepath.Join(h.workspace, "Doe, Jane")
	if err := os.WriteFile(blocker, []byte("a file where the directory should be"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := h.pipeline.Download(context.Background(), entry("Doe, Jane", "https://files/x.zip"))
	if KindOf(err) != KindFilesystem {
		t.Fatalf("kind = %q, want filesystem (err %v)", KindOf(err), err)
	}
	if errors.Is(err, archive.ErrMalformed) {
		t.Fatalf("filesystem failure misreported as malformed archive")
	}
}

func TestReviewFailureIsReported(t *testing.T) {
	h := newHarness(t, false)
	h.reviewer.err = errors.New("exec: \"nvim\": executable file not found in $PATH")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.c"), []byte("doe"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := h.pipeline.Grade(DownloadedSubmission{Profile: canvas.UserProfile{SortableName: "Doe, Jane"}, Dir: dir})
	if KindOf(err) != KindReview {
		t.Fatalf("kind = %q, want review", KindOf(err))
	}
}

func TestDirName(t *testing.T) {
	cases := map[string]string{
		"Doe, Jane":   "Doe, Jane",
		"AC/DC, Bon":  "AC_DC, Bon",
		"  ..  ":      "_",
		"":            "_",
		`back\slash`:  "back_slash",
	}
	for in, want := range cases {
		if got := DirName(in); got != want {
			t.Fatalf("DirName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlainReport(t *testing.T) {
	out := PlainReport("Doe, Jane", inspect.Report{
		Names:       []inspect.Check{{File: "main.c", Pass: true}},
		Disclaimers: []inspect.Check{{File: "README", Pass: false}},
	})
	for _, want := range []string{"Grading Doe, Jane", "\t✔ main.c", "\t✗ README"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}
