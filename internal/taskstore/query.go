package taskstore

import (
	"fmt"
	"strings"
)

// SortOrder selects how List orders tasks.
type SortOrder string

const (
	SortTitleAsc    SortOrder = "title-asc"
	SortTitleDesc   SortOrder = "title-desc"
	SortDueDateAsc  SortOrder = "dueDate-asc"
	SortDueDateDesc SortOrder = "dueDate-desc"
)

// DefaultSort matches a fresh task list view.
const DefaultSort = SortDueDateAsc

// ParseSortOrder validates raw; empty means DefaultSort.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch order := SortOrder(strings.TrimSpace(raw)); order {
	case "":
		return DefaultSort, nil
	case SortTitleAsc, SortTitleDesc, SortDueDateAsc, SortDueDateDesc:
		return order, nil
	default:
		return "", fmt.Errorf("unknown sort order %q (want title-asc, title-desc, dueDate-asc, or dueDate-desc)", raw)
	}
}

// Query filters and orders a task list.
type Query struct {
	// Search matches case-insensitively against title and description.
	Search string
	Sort   SortOrder
}

// Apply returns the matching tasks in order. The input slice is not modified.
func (q Query) Apply(tasks []Task) []Task {
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		out = append(out, t)
	}

	order := q.Sort
	if order == "" {
		order = DefaultSort
	}
	switch order {
	case SortTitleAsc:
		sortStable(out, compareTitle)
	case SortTitleDesc:
		sortStable(out, func(a, b Task) int { return compareTitle(b, a) })
	case SortDueDateAsc:
		sortStable(out, func(a, b Task) int { return compareDue(a, b, false) })
	case SortDueDateDesc:
		sortStable(out, func(a, b Task) int { return compareDue(a, b, true) })
	}
	return out
}

func compareTitle(a, b Task) int {
	if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
		return c
	}
	return strings.Compare(a.Title, b.Title)
}

// compareDue orders by due date with undated tasks last in both directions.
// Ties fall back to creation time.
func compareDue(a, b Task, desc bool) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return a.CreatedAt.Compare(b.CreatedAt)
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	c := a.DueDate.Compare(*b.DueDate)
	if desc {
		c = -c
	}
	if c != 0 {
		return c
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}
