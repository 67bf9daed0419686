package canvas

// Course is a course visible to the access token's owner.
type Course struct {
	ID   int     `json:"id"`
	Name *string `json:"name"`
}

// Assignment belongs to a course.
type Assignment struct {
	ID      int     `json:"id"`
	Name    *string `json:"name"`
	DueAt   *string `json:"due_at,omitempty"`
	HTMLURL string  `json:"html_url,omitempty"`
}

// Submission is one student's hand-in for an assignment. UserID may be
// missing when Canvas returns an anonymized or orphaned record.
type Submission struct {
	ID            int          `json:"id"`
	AssignmentID  int          `json:"assignment_id"`
	UserID        *int         `json:"user_id"`
	WorkflowState string       `json:"workflow_state,omitempty"`
	SubmittedAt   *string      `json:"submitted_at,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty"`
}

// Attachment is a file uploaded with a submission.
type Attachment struct {
	ID          int    `json:"id"`
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content-type"`
}

// UserProfile identifies a person. SortableName ("Last, First") doubles as
// the sort key and the extraction directory name, so it is required.
type UserProfile struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	ShortName    string `json:"short_name"`
	SortableName string `json:"sortable_name" validate:"required"`
	LoginID      string `json:"login_id,omitempty"`
	PrimaryEmail string `json:"primary_email,omitempty"`
}

// Label returns a display name, falling back to the id.
func (c Course) Label() string {
	return nameOr(c.Name, "course", c.ID)
}

// Label returns a display name, falling back to the id.
func (a Assignment) Label() string {
	return nameOr(a.Name, "assignment", a.ID)
}
