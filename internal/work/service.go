package work

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"tims/internal/rest"
)

var log = logging.Logger("tims/work")

// ErrNoOpenWork is returned by End when there is nothing to end.
var ErrNoOpenWork = errors.New("work: no open work")

// Service wraps the work related calls. Project and task lists are
// memoised per parent for the life of the Service.
type Service struct {
	api      API
	projects *Cache[Project]
	tasks    *Cache[Task]
	now      func() time.Time
}

func NewService(api API) *Service {
	return &Service{
		api:      api,
		projects: NewCache[Project](),
		tasks:    NewCache[Task](),
		now:      time.Now,
	}
}

func readList[T any](ctx context.Context, api API, noun string, data any) ([]T, error) {
	env, err := api.Read(ctx, service, noun, data)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := env.Decode(&out); err != nil && !errors.Is(err, rest.ErrNoData) {
		return nil, fmt.Errorf("%s: %w", noun, err)
	}
	return out, nil
}

func (s *Service) Clients(ctx context.Context) ([]Client, error) {
	return readList[Client](ctx, s.api, "clients", nil)
}

// Projects returns the projects of client, fetching them once.
func (s *Service) Projects(ctx context.Context, client string) ([]Project, error) {
	if list, ok := s.projects.Get("projects", client); ok {
		return list, nil
	}
	list, err := readList[Project](ctx, s.api, "projects", map[string]any{"client": client})
	if err != nil {
		return nil, err
	}
	s.projects.Put("projects", client, list)
	return list, nil
}

// Tasks returns the tasks of project, fetching them once.
func (s *Service) Tasks(ctx context.Context, project string) ([]Task, error) {
	if list, ok := s.tasks.Get("tasks", project); ok {
		return list, nil
	}
	list, err := readList[Task](ctx, s.api, "tasks", map[string]any{"project": project})
	if err != nil {
		return nil, err
	}
	s.tasks.Put("tasks", project, list)
	return list, nil
}

// Current returns the signed in user's open work, or nil.
func (s *Service) Current(ctx context.Context) (*Work, error) {
	env, err := s.api.Read(ctx, service, "account/work", nil)
	if err != nil {
		return nil, err
	}
	if !env.HasData() {
		return nil, nil
	}
	var w Work
	if err := env.Decode(&w); err != nil {
		return nil, err
	}
	return &w, nil
}

// StartRequest is what work/start needs. An empty description is not sent.
type StartRequest struct {
	Project     string
	Task        string
	Description string
}

// Start opens a new work record and returns its id.
func (s *Service) Start(ctx context.Context, req StartRequest) (string, error) {
	data := map[string]any{
		"project": req.Project,
		"task":    req.Task,
	}
	if d := strings.TrimSpace(req.Description); d != "" {
		data["description"] = d
	}
	env, err := s.api.Create(ctx, service, "work/start", data)
	if err != nil {
		return "", err
	}
	var id string
	if err := env.Decode(&id); err != nil {
		return "", err
	}
	log.Infow("work started", "id", id, "project", req.Project, "task", req.Task)
	return id, nil
}

// End closes the work record id and returns the end timestamp.
func (s *Service) End(ctx context.Context, id, description string) (time.Time, error) {
	if id == "" {
		return time.Time{}, ErrNoOpenWork
	}
	env, err := s.api.Update(ctx, service, "work/end", map[string]any{
		"_id":         id,
		"description": description,
	})
	if err != nil {
		return time.Time{}, err
	}
	var end int64
	if err := env.Decode(&end); err != nil {
		return time.Time{}, fmt.Errorf("work/end: %w", err)
	}
	log.Infow("work ended", "id", id)
	return time.Unix(end, 0), nil
}

// Swap ends the open work and starts next in its place. The description
// given is stored on the work being ended.
func (s *Service) Swap(ctx context.Context, open *Work, description string, next StartRequest) (string, error) {
	if open == nil {
		return "", ErrNoOpenWork
	}
	if _, err := s.End(ctx, open.ID, description); err != nil {
		return "", err
	}
	return s.Start(ctx, next)
}

// Elapsed returns the seconds worked by the signed in user in period p.
func (s *Service) Elapsed(ctx context.Context, p Period) (time.Duration, error) {
	start, end, err := Range(p, s.now())
	if err != nil {
		return 0, err
	}
	env, err := s.api.Read(ctx, service, "account/elapsed", map[string]any{
		"start": start.Unix(),
		"end":   end.Unix(),
	})
	if err != nil {
		return 0, err
	}
	var secs int64
	if err := env.Decode(&secs); err != nil && !errors.Is(err, rest.ErrNoData) {
		return 0, fmt.Errorf("account/elapsed: %w", err)
	}
	return time.Duration(secs) * time.Second, nil
}

// Previous returns the distinct client/project/task combinations worked on
// in the timeframe opts describes, first occurrence first. Combinations
// matching current are left out.
func (s *Service) Previous(ctx context.Context, opts PrevOptions, current *Work) ([]Work, error) {
	start, end, err := opts.Timeframe(s.now())
	if err != nil {
		return nil, err
	}
	works, err := readList[Work](ctx, s.api, "account/works", map[string]any{
		"start": start.Unix(),
		"end":   end.Unix(),
	})
	if err != nil {
		return nil, err
	}

	skip := current.Fingerprint()
	seen := make(map[string]bool, len(works))
	out := make([]Work, 0, len(works))
	for _, w := range works {
		id := w.Fingerprint()
		if seen[id] || id == skip {
			continue
		}
		seen[id] = true
		out = append(out, w)
	}
	return out, nil
}
