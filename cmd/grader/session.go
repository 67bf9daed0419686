package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kingrea/canvas-grader/internal/canvas"
	"github.com/kingrea/canvas-grader/internal/config"
	"github.com/kingrea/canvas-grader/internal/logbook"
	"github.com/kingrea/canvas-grader/internal/logging"
	"github.com/kingrea/canvas-grader/internal/pipeline"
	"github.com/kingrea/canvas-grader/internal/review"
	"github.com/kingrea/canvas-grader/internal/roster"
	"github.com/kingrea/canvas-grader/internal/tui"
)

// runSession walks the grader from course selection through review of every
// chosen submission.
func runSession(projectDir string, book *logbook.Logbook, keepGoing bool) error {
	ctx := context.Background()

	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return err
	}
	trace, err := logging.New(projectDir)
	if err != nil {
		return err
	}
	defer trace.Close()

	client, err := canvas.NewClient(cfg.BaseURL, cfg.AccessToken,
		canvas.WithTimeout(cfg.FetchTimeout()),
		canvas.WithLogger(trace),
	)
	if err != nil {
		return err
	}
	book.Info("session started against %s", cfg.BaseURL)

	course, err := chooseCourse(ctx, client)
	if err != nil {
		return err
	}
	assignment, err := chooseAssignment(ctx, client, course)
	if err != nil {
		return err
	}
	book.Info("grading %s / %s", course.Label(), assignment.Label())

	fmt.Println(tui.Heading("Loading submissions..."))
	subs, err := client.Submissions(ctx, course.ID, assignment.ID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Println(tui.Notice("No submissions for %s.", assignment.Label()))
		return nil
	}

	portion, err := choosePortion(len(subs))
	if err != nil {
		return err
	}

	fmt.Println(tui.Heading(fmt.Sprintf("Loading %d student profiles...", len(subs))))
	entries, err := roster.Resolve(ctx, client, subs, cfg.MaxConcurrency())
	if err != nil {
		return err
	}
	roster.SortByName(entries)
	slots := roster.NewSlots(portion.Slice(entries))
	book.Info("portion %s covers %d of %d submissions", portion.Label(), portion.Len(), len(entries))
	if slots.Len() == 0 {
		fmt.Println(tui.Notice("Portion %s is empty.", portion.Label()))
		return nil
	}

	selections, err := tui.MultiChoose("Students to grade", slots.Labels(), nil)
	if err != nil {
		return err
	}

	p, err := pipeline.New(client, review.New(cfg.Editor(), cfg.Shell()), book, pipeline.Options{
		Workspace: cfg.WorkspaceDir(),
		KeepGoing: keepGoing,
		Out:       os.Stdout,
		Render:    tui.RenderReport,
	})
	if err != nil {
		return err
	}
	summary, err := p.Run(ctx, slots, selections)
	fmt.Println(tui.Notice("%d of %d submissions graded, %d failed.", summary.Completed, summary.Selected, summary.Failed))
	return err
}

func chooseCourse(ctx context.Context, client *canvas.Client) (canvas.Course, error) {
	fmt.Println(tui.Heading("Loading courses..."))
	courses, err := client.Courses(ctx)
	if err != nil {
		return canvas.Course{}, err
	}
	labels := make([]string, len(courses))
	for i, c := range courses {
		labels[i] = c.Label()
	}
	idx, err := tui.Choose("Course", labels)
	if err != nil {
		return canvas.Course{}, err
	}
	return courses[idx], nil
}

func chooseAssignment(ctx context.Context, client *canvas.Client, course canvas.Course) (canvas.Assignment, error) {
	fmt.Println(tui.Heading("Loading assignments..."))
	assignments, err := client.Assignments(ctx, course.ID)
	if err != nil {
		return canvas.Assignment{}, err
	}
	labels := make([]string, len(assignments))
	for i, a := range assignments {
		labels[i] = a.Label()
	}
	idx, err := tui.Choose("Assignment", labels)
	if err != nil {
		return canvas.Assignment{}, err
	}
	return assignments[idx], nil
}

// choosePortion asks how many graders share the roster and which share is
// ours.
func choosePortion(total int) (roster.Portion, error) {
	divisions, err := tui.AskCount("How many graders are splitting the submissions?", 1)
	if err != nil {
		return roster.Portion{}, err
	}
	portions, err := roster.Divide(total, divisions)
	if err != nil {
		return roster.Portion{}, err
	}
	if len(portions) == 1 {
		return portions[0], nil
	}
	idx, err := tui.Choose("Which portion is yours?", portionLabels(portions))
	if err != nil {
		return roster.Portion{}, err
	}
	return roster.PortionAt(total, divisions, idx)
}

func portionLabels(portions []roster.Portion) []string {
	labels := make([]string, len(portions))
	for i, p := range portions {
		labels[i] = fmt.Sprintf("%s (%d submissions)", p.Label(), p.Len())
	}
	return labels
}
