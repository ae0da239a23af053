package taskstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/voxtask/internal/draft"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "tasks.json"))
	require.NoError(t, err)

	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("task_%d", n)
	}
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestListMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	tasks, err := s.List(Query{})
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestAddOneAssignsIdentity(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "tasks.json"))
	require.NoError(t, err)

	task, err := s.AddOne(draft.Draft{Title: "Buy milk", Description: "2 liters"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(task.ID, "task_"))
	require.Len(t, task.ID, len("task_")+36)
	require.Equal(t, "Buy milk", task.Title)
	require.Equal(t, "2 liters", task.Description)
	require.False(t, task.Completed)
	require.False(t, task.CreatedAt.IsZero())

	got, err := s.Get(task.ID)
	require.NoError(t, err)
	require.Equal(t, task.ID, got.ID)
}

func TestAddManyPreservesOrderWithIncreasingTimestamps(t *testing.T) {
	s := newTestStore(t)

	added, err := s.AddMany([]draft.Draft{{Title: "A"}, {Title: "B"}, {Title: "C"}})
	require.NoError(t, err)
	require.Len(t, added, 3)
	for i := 1; i < len(added); i++ {
		require.Equal(t, time.Millisecond, added[i].CreatedAt.Sub(added[i-1].CreatedAt))
	}

	listed, err := s.List(Query{})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, titles(listed))
}

func TestToggleUpdateDelete(t *testing.T) {
	s := newTestStore(t)
	added, err := s.AddMany([]draft.Draft{{Title: "Buy milk"}, {Title: "Call mom"}})
	require.NoError(t, err)

	toggled, err := s.Toggle(added[0].ID)
	require.NoError(t, err)
	require.True(t, toggled.Completed)
	toggled, err = s.Toggle(added[0].ID)
	require.NoError(t, err)
	require.False(t, toggled.Completed)

	title := "Call mom tonight"
	due := time.Date(2026, 3, 20, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	updated, err := s.Update(added[1].ID, Patch{Title: &title, DueDate: &due})
	require.NoError(t, err)
	require.Equal(t, "Call mom tonight", updated.Title)
	require.NotNil(t, updated.DueDate)
	require.True(t, due.Equal(*updated.DueDate))
	require.Equal(t, time.UTC, updated.DueDate.Location())

	updated, err = s.Update(added[1].ID, Patch{ClearDueDate: true})
	require.NoError(t, err)
	require.Nil(t, updated.DueDate)

	require.NoError(t, s.Delete(added[0].ID))
	listed, err := s.List(Query{})
	require.NoError(t, err)
	require.Equal(t, []string{"Call mom tonight"}, titles(listed))
}

func TestUnknownIDReturnsErrTaskNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Toggle("task_missing")
	require.True(t, errors.Is(err, ErrTaskNotFound))
	_, err = s.Update("task_missing", Patch{})
	require.ErrorIs(t, err, ErrTaskNotFound)
	require.ErrorIs(t, s.Delete("task_missing"), ErrTaskNotFound)
	_, err = s.Get("task_missing")
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestClearEmptiesList(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddMany([]draft.Draft{{Title: "A"}, {Title: "B"}})
	require.NoError(t, err)

	require.NoError(t, s.Clear())
	listed, err := s.List(Query{})
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestSaveWritesPrivateFileAtomically(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddOne(draft.Draft{Title: "A"})
	require.NoError(t, err)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "tasks.json", entries[0].Name())
}

func TestStoreSharesFileAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	first, err := Open(path)
	require.NoError(t, err)
	second, err := Open(path)
	require.NoError(t, err)

	_, err = first.AddOne(draft.Draft{Title: "From first"})
	require.NoError(t, err)
	_, err = second.AddOne(draft.Draft{Title: "From second"})
	require.NoError(t, err)

	listed, err := first.List(Query{})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"From first", "From second"}, titles(listed))
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	_, err := s.List(Query{})
	require.ErrorContains(t, err, "decode task store")
}

func TestSections(t *testing.T) {
	pending, completed := Sections([]Task{
		{ID: "1", Completed: false},
		{ID: "2", Completed: true},
		{ID: "3", Completed: false},
	})
	require.Equal(t, []string{"1", "3"}, ids(pending))
	require.Equal(t, []string{"2"}, ids(completed))
}

func titles(tasks []Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func ids(tasks []Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
