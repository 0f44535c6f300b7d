package work

import (
	"context"
	"errors"

	"tims/internal/localstore"
)

// Which set of selections a Selector remembers.
const (
	Last = "last"
	Prev = "prev"
)

// Selection is the chosen client, project and task. Empty means none.
type Selection struct {
	Client  string
	Project string
	Task    string
}

// Selector keeps a client, project and task selection consistent: changing
// the client reloads its projects and keeps the project when it still
// belongs, otherwise falls back to the first project or none. Projects and
// tasks cascade the same way. Each choice is remembered in local storage
// under work_{which}_{kind}.
type Selector struct {
	svc   *Service
	store *localstore.Store
	which string
	sel   Selection
}

// NewSelector restores the remembered selection. Without a remembered
// client the first of clients is used.
func NewSelector(svc *Service, store *localstore.Store, which string, clients []Client) *Selector {
	def := ""
	if len(clients) > 0 {
		def = clients[0].ID
	}
	return &Selector{
		svc:   svc,
		store: store,
		which: which,
		sel: Selection{
			Client:  store.String(localstore.LastUsedKey(which, "client"), def),
			Project: store.String(localstore.LastUsedKey(which, "project"), ""),
			Task:    store.String(localstore.LastUsedKey(which, "task"), ""),
		},
	}
}

// Selection returns the current selection.
func (s *Selector) Selection() Selection { return s.sel }

// Resolve validates the restored selection top down.
func (s *Selector) Resolve(ctx context.Context) error {
	return s.SelectClient(ctx, s.sel.Client)
}

// SelectClient picks client and cascades to its projects and tasks.
func (s *Selector) SelectClient(ctx context.Context, client string) error {
	s.sel.Client = client
	if client == "" {
		return nil
	}
	if err := s.store.StoreLastUsed(s.which, "client", client); err != nil {
		return err
	}

	projects, err := s.svc.Projects(ctx, client)
	if err != nil {
		return err
	}
	project := s.sel.Project
	if indexOf(projects, projectID, project) == -1 {
		project = ""
		if len(projects) > 0 {
			project = projects[0].ID
		}
	}
	return s.SelectProject(ctx, project)
}

// SelectProject picks project and cascades to its tasks.
func (s *Selector) SelectProject(ctx context.Context, project string) error {
	s.sel.Project = project
	if project == "" {
		s.sel.Task = ""
		return nil
	}
	if err := s.store.StoreLastUsed(s.which, "project", project); err != nil {
		return err
	}

	tasks, err := s.svc.Tasks(ctx, project)
	if err != nil {
		return err
	}
	task := s.sel.Task
	if indexOf(tasks, taskID, task) == -1 {
		task = ""
		if len(tasks) > 0 {
			task = tasks[0].ID
		}
	}
	return s.SelectTask(task)
}

// ErrNoTask is returned by Start when nothing is selected to work on.
var ErrNoTask = errors.New("work: no project and task selected")

// SelectTask picks task.
func (s *Selector) SelectTask(task string) error {
	s.sel.Task = task
	return s.store.StoreLastUsed(s.which, "task", task)
}

// Start opens work on the selected project and task.
func (s *Selector) Start(ctx context.Context, description string) (string, error) {
	if s.sel.Project == "" || s.sel.Task == "" {
		return "", ErrNoTask
	}
	return s.svc.Start(ctx, StartRequest{
		Project:     s.sel.Project,
		Task:        s.sel.Task,
		Description: description,
	})
}
