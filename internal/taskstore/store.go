// Package taskstore persists the user's task list as a single JSON document.
package taskstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/voxtask/internal/draft"
)

// ErrTaskNotFound is returned when an operation names an unknown task ID.
var ErrTaskNotFound = errors.New("task not found")

// Task is one persisted task-list entry.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Patch carries optional field updates. Nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
	DueDate     *time.Time
	// ClearDueDate removes any due date; it wins over DueDate.
	ClearDueDate bool
}

type document struct {
	Tasks []Task `json:"tasks"`
}

// Store reads and rewrites the task file on every operation so concurrent
// CLI invocations observe each other's writes.
type Store struct {
	path string

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// Open returns a store backed by path. The file is created on first write.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("task store path is empty")
	}
	return &Store{
		path:  path,
		now:   time.Now,
		newID: func() string { return "task_" + uuid.NewString() },
	}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// AddOne appends one task built from d.
func (s *Store) AddOne(d draft.Draft) (Task, error) {
	added, err := s.AddMany([]draft.Draft{d})
	if err != nil {
		return Task{}, err
	}
	return added[0], nil
}

// AddMany appends one task per draft. Creation timestamps increase by one
// millisecond per index so batch order survives a created-at sort.
func (s *Store) AddMany(drafts []draft.Draft) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return nil, err
	}

	base := s.now().UTC().Truncate(time.Millisecond)
	added := make([]Task, 0, len(drafts))
	for i, d := range drafts {
		added = append(added, Task{
			ID:          s.newID(),
			Title:       d.Title,
			Description: d.Description,
			CreatedAt:   base.Add(time.Duration(i) * time.Millisecond),
		})
	}

	if err := s.save(append(tasks, added...)); err != nil {
		return nil, err
	}
	return added, nil
}

// Toggle flips the completion flag of id.
func (s *Store) Toggle(id string) (Task, error) {
	return s.mutate(id, func(t *Task) { t.Completed = !t.Completed })
}

// Update applies patch to id.
func (s *Store) Update(id string, patch Patch) (Task, error) {
	return s.mutate(id, func(t *Task) {
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Completed != nil {
			t.Completed = *patch.Completed
		}
		if patch.DueDate != nil {
			due := patch.DueDate.UTC()
			t.DueDate = &due
		}
		if patch.ClearDueDate {
			t.DueDate = nil
		}
	})
}

// Delete removes id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return err
	}
	idx := indexOf(tasks, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return s.save(append(tasks[:idx], tasks[idx+1:]...))
}

// Clear removes every task.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(nil)
}

// Get returns one task by id.
func (s *Store) Get(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return Task{}, err
	}
	idx := indexOf(tasks, id)
	if idx < 0 {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return tasks[idx], nil
}

// List returns tasks matching q in q's sort order.
func (s *Store) List(q Query) ([]Task, error) {
	s.mu.Lock()
	tasks, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return q.Apply(tasks), nil
}

func (s *Store) mutate(id string, apply func(*Task)) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return Task{}, err
	}
	idx := indexOf(tasks, id)
	if idx < 0 {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	apply(&tasks[idx])
	if err := s.save(tasks); err != nil {
		return Task{}, err
	}
	return tasks[idx], nil
}

func (s *Store) load() ([]Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Task{}, nil
		}
		return nil, fmt.Errorf("read task store %q: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []Task{}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode task store %q: %w", s.path, err)
	}
	if doc.Tasks == nil {
		doc.Tasks = []Task{}
	}
	return doc.Tasks, nil
}

// save writes the whole list through a temp file and rename.
func (s *Store) save(tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.MarshalIndent(document{Tasks: tasks}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode task store: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create task store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("create temp task store: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp task store: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp task store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp task store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace task store: %w", err)
	}
	return nil
}

func indexOf(tasks []Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Sections splits tasks into pending and completed, preserving order.
func Sections(tasks []Task) (pending, completed []Task) {
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
			continue
		}
		pending = append(pending, t)
	}
	return pending, completed
}

// sortStable orders tasks in place with less, keeping stored order for ties.
func sortStable(tasks []Task, less func(a, b Task) int) {
	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) < 0 })
}
