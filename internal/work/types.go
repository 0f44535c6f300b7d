// Package work covers the work screen: the entities work is logged against,
// the open work record and the summaries of time spent.
package work

import (
	"context"

	"tims/internal/rest"
)

// API is the subset of *rest.Client the package calls.
type API interface {
	Create(ctx context.Context, service, noun string, data any) (*rest.Envelope, error)
	Read(ctx context.Context, service, noun string, data any) (*rest.Envelope, error)
	Update(ctx context.Context, service, noun string, data any) (*rest.Envelope, error)
}

const service = "primary"

type Client struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type Project struct {
	ID          string `json:"_id"`
	Client      string `json:"client"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Task struct {
	ID          string `json:"_id"`
	Project     string `json:"project"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Work is one work record. End is nil while the work is open.
type Work struct {
	ID          string `json:"_id"`
	Client      string `json:"client"`
	ClientName  string `json:"clientName"`
	Project     string `json:"project"`
	ProjectName string `json:"projectName"`
	Task        string `json:"task"`
	TaskName    string `json:"taskName"`
	Start       int64  `json:"start"`
	End         *int64 `json:"end,omitempty"`
	Description string `json:"description,omitempty"`
	Elapsed     int64  `json:"elapsed,omitempty"`
}

// Fingerprint identifies what the work was done on, ignoring when.
func (w *Work) Fingerprint() string {
	if w == nil {
		return ""
	}
	return w.Client + "-" + w.Project + "-" + w.Task
}

func indexOf[T any](list []T, id func(T) string, want string) int {
	for i, v := range list {
		if id(v) == want {
			return i
		}
	}
	return -1
}

func projectID(p Project) string { return p.ID }
func taskID(t Task) string       { return t.ID }
