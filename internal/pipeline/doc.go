// Package pipeline drives the per-submission sequence of a grading session:
// download the first attachment, extract it into a per-student directory,
// run the inspection checks, then hand the terminal to the grader for review.
//
// Entries are processed one at a time. By default the first failing entry
// stops the run; Options.KeepGoing collects failures instead.
package pipeline
