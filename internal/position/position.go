// Package position implements the dense ordering used for a board's lists and
// a list's tasks. After every mutation a scope holds positions 0..n-1 in
// display order.
package position

import (
	"fmt"
	"sort"

	"github.com/thenoetrevino/kanban/internal/models"
)

// ErrNegativeIndex is returned when a caller asks for an index below zero
var ErrNegativeIndex = fmt.Errorf("%w: index must be >= 0", models.ErrValidation)

// Item is one member of a scope
type Item struct {
	ID       int
	Position int
}

// Sort orders items by position, breaking ties by id
func Sort(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].ID < items[j].ID
	})
}

// Clamp limits index to the insertion range of a scope with n members
func Clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}

// IndexOf returns the slice index of id, or -1
func IndexOf(items []Item, id int) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Remove returns a copy of items without id
func Remove(items []Item, id int) ([]Item, bool) {
	idx := IndexOf(items, id)
	if idx < 0 {
		return append([]Item(nil), items...), false
	}
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:idx]...)
	out = append(out, items[idx+1:]...)
	return out, true
}

// Insert returns a copy of items with it placed at index. An index past the
// end appends. The inserted item wins the index; the items at and after it
// shift one toward the end. The returned int is the index actually used.
func Insert(items []Item, it Item, index int) ([]Item, int) {
	index = Clamp(index, len(items))
	out := make([]Item, 0, len(items)+1)
	out = append(out, items[:index]...)
	out = append(out, it)
	out = append(out, items[index:]...)
	return out, index
}

// Renumber assigns 0..n-1 in slice order and returns the members whose
// position changed, carrying their new position
func Renumber(items []Item) []Item {
	var changed []Item
	for i := range items {
		if items[i].Position != i {
			items[i].Position = i
			changed = append(changed, items[i])
		}
	}
	return changed
}

// Move relocates id within a single scope to index and renumbers it.
// It returns the new order, the final index of the moved item and the
// members whose position changed.
func Move(items []Item, id, index int) ([]Item, int, []Item, error) {
	if index < 0 {
		return nil, 0, nil, ErrNegativeIndex
	}
	moving := IndexOf(items, id)
	if moving < 0 {
		return nil, 0, nil, fmt.Errorf("%w: item %d is not in scope", models.ErrNotFound, id)
	}
	it := items[moving]
	rest, _ := Remove(items, id)
	out, final := Insert(rest, it, index)
	changed := Renumber(out)
	return out, final, changed, nil
}

// Transfer moves id out of src and into dst at index. Both scopes are
// renumbered. The changed members of each scope are returned separately,
// along with the final index of the moved item in dst.
func Transfer(src, dst []Item, id, index int) (newSrc, newDst []Item, final int, srcChanged, dstChanged []Item, err error) {
	if index < 0 {
		return nil, nil, 0, nil, nil, ErrNegativeIndex
	}
	moving := IndexOf(src, id)
	if moving < 0 {
		return nil, nil, 0, nil, nil, fmt.Errorf("%w: item %d is not in source scope", models.ErrNotFound, id)
	}
	it := src[moving]
	newSrc, _ = Remove(src, id)
	newDst, final = Insert(dst, it, index)

	srcChanged = Renumber(newSrc)
	dstChanged = Renumber(newDst)
	// the moved item always changes scope, so it is written even when its
	// index happens to equal its old position
	if IndexOf(dstChanged, id) < 0 {
		dstChanged = append(dstChanged, newDst[final])
	}
	return newSrc, newDst, final, srcChanged, dstChanged, nil
}

// Dense reports whether the positions are exactly 0..n-1 with no duplicates
func Dense(items []Item) bool {
	seen := make([]bool, len(items))
	for _, it := range items {
		if it.Position < 0 || it.Position >= len(items) || seen[it.Position] {
			return false
		}
		seen[it.Position] = true
	}
	return true
}

// IDs returns the ids in slice order
func IDs(items []Item) []int {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
