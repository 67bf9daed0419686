// Package canvas is a small read-only client for the Canvas LMS REST API. It
// covers only what a grading session needs: listing courses, assignments and
// submissions, resolving user profiles, and downloading attachment bytes.
package canvas
