package work

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tims/internal/localstore"
	"tims/internal/rest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend answers primary/{noun} reads from fixed data keyed by noun and the
// d parameter, and counts the hits.
type backend struct {
	mu     sync.Mutex
	hits   map[string]int
	bodies map[string]map[string]any
	data   func(noun string, d map[string]any) any
}

func newBackend(t *testing.T, data func(noun string, d map[string]any) any) (*rest.Client, *backend) {
	t.Helper()
	b := &backend{hits: map[string]int{}, bodies: map[string]map[string]any{}, data: data}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noun := r.URL.Path[len("/primary/"):]
		d := map[string]any{}
		if q := r.URL.Query().Get("d"); q != "" {
			_ = json.Unmarshal([]byte(q), &d)
		} else if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&d)
		}
		b.mu.Lock()
		b.hits[noun]++
		b.bodies[noun] = d
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": b.data(noun, d)})
	}))
	t.Cleanup(srv.Close)
	return rest.New(srv.URL, rest.Hooks{}), b
}

func (b *backend) count(noun string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[noun]
}

func (b *backend) body(noun string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[noun]
}

func catalogue(noun string, d map[string]any) any {
	switch noun {
	case "projects":
		switch d["client"] {
		case "c1":
			return []Project{{ID: "p1", Client: "c1"}, {ID: "p2", Client: "c1"}}
		case "c2":
			return []Project{{ID: "p3", Client: "c2"}}
		}
		return []Project{}
	case "tasks":
		switch d["project"] {
		case "p1":
			return []Task{{ID: "t1"}, {ID: "t2"}}
		case "p2":
			return []Task{{ID: "t3"}}
		case "p3":
			return []Task{{ID: "t4"}}
		}
		return []Task{}
	}
	return nil
}

func openStore(t *testing.T) *localstore.Store {
	t.Helper()
	s, err := localstore.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSelectorFallsBackToFirst(t *testing.T) {
	api, _ := newBackend(t, catalogue)
	store := openStore(t)

	sel := NewSelector(NewService(api), store, Last, []Client{{ID: "c1"}, {ID: "c2"}})
	require.NoError(t, sel.Resolve(context.Background()))

	assert.Equal(t, Selection{Client: "c1", Project: "p1", Task: "t1"}, sel.Selection())
	assert.Equal(t, "p1", store.String(localstore.KeyLastProject, ""))
	assert.Equal(t, "t1", store.String(localstore.KeyLastTask, ""))
}

func TestSelectorKeepsValidStoredChoice(t *testing.T) {
	api, _ := newBackend(t, catalogue)
	store := openStore(t)
	require.NoError(t, store.StoreLastUsed(Last, "client", "c1"))
	require.NoError(t, store.StoreLastUsed(Last, "project", "p2"))
	require.NoError(t, store.StoreLastUsed(Last, "task", "t3"))

	sel := NewSelector(NewService(api), store, Last, []Client{{ID: "c2"}})
	require.NoError(t, sel.Resolve(context.Background()))
	assert.Equal(t, Selection{Client: "c1", Project: "p2", Task: "t3"}, sel.Selection())

	// p2 does not belong to c2, so the project and task cascade
	require.NoError(t, sel.SelectClient(context.Background(), "c2"))
	assert.Equal(t, Selection{Client: "c2", Project: "p3", Task: "t4"}, sel.Selection())
	assert.Equal(t, "c2", store.String(localstore.KeyLastClient, ""))
}

func TestSelectorWithoutProjects(t *testing.T) {
	api, _ := newBackend(t, catalogue)
	store := openStore(t)

	sel := NewSelector(NewService(api), store, Prev, []Client{{ID: "empty"}})
	require.NoError(t, sel.Resolve(context.Background()))
	assert.Equal(t, Selection{Client: "empty"}, sel.Selection())
	assert.Equal(t, "empty", store.String(localstore.KeyPrevClient, ""))

	_, err := sel.Start(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoTask)
}

func TestProjectsAreMemoised(t *testing.T) {
	api, b := newBackend(t, catalogue)
	svc := NewService(api)
	store := openStore(t)

	sel := NewSelector(svc, store, Last, []Client{{ID: "c1"}})
	ctx := context.Background()
	require.NoError(t, sel.SelectClient(ctx, "c1"))
	require.NoError(t, sel.SelectClient(ctx, "c2"))
	require.NoError(t, sel.SelectClient(ctx, "c1"))

	assert.Equal(t, 2, b.count("projects"))
	assert.Equal(t, 2, svc.projects.Len())
}

func TestStartOmitsEmptyDescription(t *testing.T) {
	api, b := newBackend(t, func(noun string, d map[string]any) any { return "w1" })
	svc := NewService(api)

	id, err := svc.Start(context.Background(), StartRequest{Project: "p1", Task: "t1", Description: "  "})
	require.NoError(t, err)
	assert.Equal(t, "w1", id)
	assert.Equal(t, map[string]any{"project": "p1", "task": "t1"}, b.body("work/start"))

	_, err = svc.Start(context.Background(), StartRequest{Project: "p1", Task: "t1", Description: " fixing "})
	require.NoError(t, err)
	assert.Equal(t, "fixing", b.body("work/start")["description"])
}

func TestCurrentAndEnd(t *testing.T) {
	api, b := newBackend(t, func(noun string, d map[string]any) any {
		switch noun {
		case "account/work":
			return Work{ID: "w1", Client: "c1", Project: "p1", Task: "t1", Start: 1700000000}
		case "work/end":
			return 1700003600
		}
		return nil
	})
	svc := NewService(api)
	ctx := context.Background()

	w, err := svc.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Nil(t, w.End)

	end, err := svc.End(ctx, w.ID, "done")
	require.NoError(t, err)
	assert.Equal(t, int64(1700003600), end.Unix())
	assert.Equal(t, map[string]any{"_id": "w1", "description": "done"}, b.body("work/end"))

	_, err = svc.End(ctx, "", "")
	assert.ErrorIs(t, err, ErrNoOpenWork)
}

func TestCurrentNone(t *testing.T) {
	api, _ := newBackend(t, func(string, map[string]any) any { return nil })
	w, err := NewService(api).Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestPreviousIsDistinctAndSkipsCurrent(t *testing.T) {
	api, b := newBackend(t, func(noun string, d map[string]any) any {
		return []Work{
			{ID: "1", Client: "c1", Project: "p1", Task: "t1"},
			{ID: "2", Client: "c1", Project: "p1", Task: "t2"},
			{ID: "3", Client: "c1", Project: "p1", Task: "t1"},
			{ID: "4", Client: "c2", Project: "p3", Task: "t4"},
		}
	})
	svc := NewService(api)
	now := time.Date(2024, 3, 14, 15, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return now }

	list, err := svc.Previous(context.Background(), PrevOptions{Count: 2, Type: Day},
		&Work{Client: "c2", Project: "p3", Task: "t4"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "2", list[1].ID)

	body := b.body("account/works")
	assert.EqualValues(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.Local).Unix(), body["start"])
	assert.EqualValues(t, time.Date(2024, 3, 14, 23, 59, 59, 0, time.Local).Unix(), body["end"])
}

func TestElapsedSendsRange(t *testing.T) {
	api, b := newBackend(t, func(string, map[string]any) any { return 5400 })
	svc := NewService(api)
	now := time.Date(2024, 3, 14, 15, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return now }

	d, err := svc.Elapsed(context.Background(), Week)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)
	assert.Equal(t, "1:30", FormatElapsed(d))

	body := b.body("account/elapsed")
	assert.EqualValues(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local).Unix(), body["start"])
	assert.EqualValues(t, time.Date(2024, 3, 16, 23, 59, 59, 0, time.Local).Unix(), body["end"])
}
