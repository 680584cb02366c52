// Package nav builds the side menu from a static descriptor.
package nav

import (
	"strings"

	"github.com/esora/officine/internal/access"
	"github.com/esora/officine/internal/counters"
	"github.com/esora/officine/internal/identity"
)

// Entry is one node of the static menu descriptor. Entries with Children
// are groups; their Path only prefixes the children.
type Entry struct {
	Title    string
	Icon     string
	Path     string
	Access   access.Requirement
	Badge    counters.Kind
	Children []Entry
}

// IsGroup reports whether e holds children.
func (e Entry) IsGroup() bool {
	return len(e.Children) > 0
}

// Item is a visible menu entry ready for rendering.
type Item struct {
	Title    string
	Icon     string
	Path     string
	Badge    int
	Counter  counters.Kind
	Active   bool
	Children []Item
}

// Compose filters menu for user and profile. Only entries the resolver
// allows survive; groups left without children are hidden. Badges come
// from counts and the entry matching currentPath is marked active.
func Compose(menu []Entry, user *identity.User, profile *access.Profile, counts counters.Snapshot, currentPath string) []Item {
	var out []Item
	for _, e := range menu {
		if access.Resolve(e.Access, user, profile) != access.Allow {
			continue
		}
		if e.IsGroup() {
			children := Compose(e.Children, user, profile, counts, currentPath)
			if len(children) == 0 {
				continue
			}
			item := Item{Title: e.Title, Icon: e.Icon, Path: e.Path, Children: children}
			for _, c := range children {
				if c.Active {
					item.Active = true
					break
				}
			}
			out = append(out, item)
			continue
		}
		out = append(out, Item{
			Title:   e.Title,
			Icon:    e.Icon,
			Path:    e.Path,
			Badge:   counts.Get(e.Badge),
			Counter: e.Badge,
			Active:  matches(e.Path, currentPath),
		})
	}
	return out
}

// Lookup returns the leaf entry guarding path, matching the longest path
// prefix.
func Lookup(menu []Entry, path string) (Entry, bool) {
	var best Entry
	found := false
	walk(menu, func(e Entry) {
		if !matches(e.Path, path) {
			return
		}
		if !found || len(e.Path) > len(best.Path) {
			best, found = e, true
		}
	})
	return best, found
}

// Title returns the header title for path, "Dashboard" when unknown.
func Title(menu []Entry, path string) string {
	if e, ok := Lookup(menu, path); ok {
		return e.Title
	}
	return "Dashboard"
}

// Leaves lists every leaf entry in menu order.
func Leaves(menu []Entry) []Entry {
	var out []Entry
	walk(menu, func(e Entry) { out = append(out, e) })
	return out
}

func walk(menu []Entry, fn func(Entry)) {
	for _, e := range menu {
		if e.IsGroup() {
			walk(e.Children, fn)
			continue
		}
		fn(e)
	}
}

func matches(entryPath, path string) bool {
	if entryPath == "" {
		return false
	}
	if path == entryPath {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(entryPath, "/")+"/")
}
