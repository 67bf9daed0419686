// Package roster turns an assignment's raw submission list into a sorted,
// profile-annotated roster and divides it into contiguous portions so several
// graders can split the work without coordinating. Dividing the same roster
// the same way always yields the same portions.
package roster
