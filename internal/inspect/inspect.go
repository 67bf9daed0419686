// Package inspect reads an extracted submission and runs the advisory checks
// shown to the grader before review. Checks never modify files.
package inspect

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/unicode"
)

// Disclaimer is the originality statement every README must contain.
const Disclaimer = "by submitting this file to carmen, i certify that i have performed all"

// reviewPattern selects readme, build and C/C++ source or header files. It is
// matched against lower-cased file names.
var reviewPattern = regexp.MustCompile(`readme|makefile|\.(c|cc|cpp|cxx|h|hh|hpp|hxx)$`)

var fold = cases.Fold()

// FileRecord is one regular file from the extraction directory. Contents is
// only meaningful when Decoded is true; binary or unreadable files are kept
// with Decoded false.
type FileRecord struct {
	Path     string
	Name     string
	Contents string
	Decoded  bool
}

// Check is the outcome of one check against one file.
type Check struct {
	File string
	Pass bool
}

// Report collects both checks plus the files to open for review.
type Report struct {
	FamilyName  string
	Names       []Check
	Disclaimers []Check
	Review      []string
}

// Passed reports whether every check in the report passed.
func (r Report) Passed() bool {
	for _, c := range r.Names {
		if !c.Pass {
			return false
		}
	}
	for _, c := range r.Disclaimers {
		if !c.Pass {
			return false
		}
	}
	return true
}

// Failures counts failed checks across both lists.
func (r Report) Failures() int {
	n := 0
	for _, c := range append(append([]Check{}, r.Names...), r.Disclaimers...) {
		if !c.Pass {
			n++
		}
	}
	return n
}

// Collect lists the regular files directly inside dir, sorted by name, and
// decodes each as UTF-8 when possible.
func Collect(dir string) ([]FileRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("inspect: read dir %s: %w", dir, err)
	}
	var files []FileRecord
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		record := FileRecord{Path: path, Name: entry.Name()}
		if data, err := os.ReadFile(path); err == nil {
			record.Contents, record.Decoded = decodeText(data)
		}
		files = append(files, record)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func decodeText(data []byte) (string, bool) {
	if !utf8.Valid(data) {
		return "", false
	}
	text, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(text), true
}

// FamilyName returns the part of a "Last, First" name before the first comma.
func FamilyName(sortableName string) string {
	family, _, _ := strings.Cut(sortableName, ",")
	return strings.TrimSpace(family)
}

// NeedsReview reports whether a file name is a source, build or readme file.
func NeedsReview(name string) bool {
	return reviewPattern.MatchString(strings.ToLower(name))
}

// IsReadme reports whether the disclaimer check applies to name.
func IsReadme(name string) bool {
	return strings.Contains(strings.ToLower(name), "readme")
}

// Inspect runs the name and disclaimer checks for the submitter identified by
// sortableName.
func Inspect(files []FileRecord, sortableName string) Report {
	report := Report{FamilyName: FamilyName(sortableName)}
	family := fold.String(report.FamilyName)
	disclaimer := fold.String(Disclaimer)
	for _, f := range files {
		text := ""
		if f.Decoded {
			text = fold.String(f.Contents)
		}
		if NeedsReview(f.Name) {
			report.Names = append(report.Names, Check{File: f.Name, Pass: strings.Contains(text, family)})
			report.Review = append(report.Review, f.Path)
		}
		if IsReadme(f.Name) {
			report.Disclaimers = append(report.Disclaimers, Check{File: f.Name, Pass: strings.Contains(text, disclaimer)})
		}
	}
	return report
}
