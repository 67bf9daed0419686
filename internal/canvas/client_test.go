package canvas

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, "token-123", WithHTTPClient(srv.Client()), WithPageSize(2))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func TestSubmissionsFollowsLinkPagination(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/7/assignments/9/submissions", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
			t.Errorf("authorization = %q", got)
		}
		if r.URL.Query().Get("per_page") != "2" {
			t.Errorf("per_page = %q", r.URL.Query().Get("per_page"))
		}
		switch r.URL.Query().Get("page") {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/courses/7/assignments/9/submissions?page=2&per_page=2>; rel="next", <%s/x?page=1>; rel="first"`, srvURL, srvURL))
			fmt.Fprint(w, `[{"id":1,"user_id":11,"attachments":[{"id":5,"url":"http://files/a.zip","filename":"a.zip","size":2048}]},{"id":2,"user_id":12}]`)
		case "2":
			fmt.Fprint(w, `[{"id":3,"user_id":null}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	client, srv := newTestClient(t, mux)
	srvURL = srv.URL

	subs, err := client.Submissions(context.Background(), 7, 9)
	if err != nil {
		t.Fatalf("Submissions: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("len(subs) = %d, want 3", len(subs))
	}
	if subs[0].UserID == nil || *subs[0].UserID != 11 {
		t.Fatalf("first user id = %v", subs[0].UserID)
	}
	if len(subs[0].Attachments) != 1 || subs[0].Attachments[0].URL != "http://files/a.zip" {
		t.Fatalf("attachments = %+v", subs[0].Attachments)
	}
	if subs[2].UserID != nil {
		t.Fatalf("expected nil user id for orphaned submission")
	}
}

func TestUserProfileValidatesSortableName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/1/profile", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":1,"name":"Jane Doe","sortable_name":"Doe, Jane"}`)
	})
	mux.HandleFunc("/api/v1/users/2/profile", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":2,"name":"Nobody"}`)
	})
	client, _ := newTestClient(t, mux)

	profile, err := client.UserProfile(context.Background(), 1)
	if err != nil {
		t.Fatalf("UserProfile: %v", err)
	}
	if profile.SortableName != "Doe, Jane" {
		t.Fatalf("sortable name = %q", profile.SortableName)
	}
	if _, err := client.UserProfile(context.Background(), 2); err == nil {
		t.Fatalf("expected validation error for profile without sortable_name")
	}
}

func TestNonSuccessStatusReturnsStatusError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/3/profile", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"user not authorized"}]}`, http.StatusUnauthorized)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.UserProfile(context.Background(), 3)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", statusErr.StatusCode)
	}
}

func TestTransportFailureWrapsErrRequest(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client, err := NewClient(srv.URL, "token")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	srv.Close()
	if _, err := client.Courses(context.Background()); !errors.Is(err, ErrRequest) {
		t.Fatalf("expected ErrRequest, got %v", err)
	}
}

func TestDownloadOnlyAuthorizesCanvasHost(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("token leaked to foreign host")
		}
		w.Write([]byte("PK-bytes"))
	}))
	t.Cleanup(files.Close)
	logger := &recordingLogger{}
	client, err := NewClient("https://canvas.example.edu", "token", WithHTTPClient(files.Client()), WithLogger(logger))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	data, err := client.Download(context.Background(), files.URL+"/files/1/download?verifier=abc")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "PK-bytes" {
		t.Fatalf("data = %q", data)
	}
	for _, line := range logger.lines {
		if strings.Contains(line, "verifier") {
			t.Fatalf("query string not redacted: %q", line)
		}
	}
}

func TestPaginationOnlyAuthorizesCanvasHost(t *testing.T) {
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("token sent to foreign next link")
		}
		fmt.Fprint(w, `[{"id":2,"name":"Compilers"}]`)
	}))
	t.Cleanup(foreign.Close)
	canvasSrv := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/courses?page=2>; rel="next"`, foreign.URL))
		fmt.Fprint(w, `[{"id":1,"name":"Algorithms"}]`)
	})
	client, _ := newTestClient(t, canvasSrv)

	courses, err := client.Courses(context.Background())
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}
	if len(courses) != 2 || courses[1].Label() != "Compilers" {
		t.Fatalf("courses = %+v", courses)
	}
}

func TestNextPage(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{`<https://c.example/a?page=2>; rel="next"`, "https://c.example/a?page=2"},
		{`<https://c.example/a?page=1>; rel="current", <https://c.example/a?page=3>; rel="last"`, ""},
		{`<https://c.example/a?page=1>; rel="prev",<https://c.example/a?page=3>;rel=next`, "https://c.example/a?page=3"},
	}
	for _, tc := range cases {
		got, err := nextPage(tc.header)
		if err != nil {
			t.Fatalf("nextPage(%q): %v", tc.header, err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != tc.want {
			t.Fatalf("nextPage(%q) = %q, want %q", tc.header, gotStr, tc.want)
		}
	}
}

func TestLabelsFallBackToID(t *testing.T) {
	name := "  "
	if got := (Course{ID: 4, Name: &name}).Label(); got != "course 4" {
		t.Fatalf("label = %q", got)
	}
	title := "Lab 3"
	if got := (Assignment{ID: 9, Name: &title}).Label(); got != "Lab 3" {
		t.Fatalf("label = %q", got)
	}
}
