// Package catalog loads and orders the universe of candidate groups.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Priority ranks how soon a candidate group should be attempted.
type Priority int

// Priority ranks, ascending order of urgency.
const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// ParsePriority maps a catalog priority string to its rank.
// Unknown strings rank after low so malformed entries sort last.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh
	case "medium", "":
		return PriorityMedium
	case "low":
		return PriorityLow
	default:
		return Priority(99)
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Group is one candidate crawl target from the catalog source.
type Group struct {
	Link     string
	Category string
	Priority Priority
}

// Error reports a malformed or unreadable catalog source. Callers are
// expected to treat it as "catalog is empty", never as fatal.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("catalog %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Normalize canonicalizes a group identifier by stripping the network
// origin prefix, leaving the bare handle or invite path.
func Normalize(link string) string {
	s := strings.TrimSpace(link)
	for _, prefix := range []string{
		"https://t.me/",
		"http://t.me/",
		"https://telegram.me/",
		"http://telegram.me/",
		"t.me/",
	} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimPrefix(s, prefix)
		}
	}
	return s
}

// Catalog reads candidate groups from the first existing source path.
type Catalog struct {
	paths []string
}

// New builds a Catalog that prefers primary and falls back to a copy of
// the same file under the data directory.
func New(primary, dataDir string) *Catalog {
	paths := []string{primary}
	if dataDir != "" {
		paths = append(paths, filepath.Join(dataDir, filepath.Base(primary)))
	}
	return &Catalog{paths: paths}
}

type rawEntry struct {
	Link     string `json:"link"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Priority string `json:"priority"`
}

// Load returns the filtered, deduplicated, priority-ordered candidate
// list. A missing source yields an empty list; a malformed source
// yields an empty list plus a *Error for diagnostics. No merging
// happens across sources: the first path that exists wins.
func (c *Catalog) Load(categoryFilter string) ([]Group, error) {
	path := ""
	for _, p := range c.paths {
		if _, err := os.Stat(p); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	var entries []rawEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	filter := strings.ToLower(strings.TrimSpace(categoryFilter))

	// Dedupe by normalized link, keeping the highest-priority entry.
	// On equal priority the first occurrence wins.
	byLink := make(map[string]int)
	var groups []Group
	for _, e := range entries {
		link := e.Link
		if link == "" {
			link = e.URL
		}
		link = Normalize(link)
		if link == "" {
			continue
		}
		if filter != "" && strings.ToLower(strings.TrimSpace(e.Category)) != filter {
			continue
		}
		g := Group{
			Link:     link,
			Category: strings.TrimSpace(e.Category),
			Priority: ParsePriority(e.Priority),
		}
		if idx, seen := byLink[link]; seen {
			if g.Priority < groups[idx].Priority {
				groups[idx] = g
			}
			continue
		}
		byLink[link] = len(groups)
		groups = append(groups, g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Priority < groups[j].Priority
	})
	return groups, nil
}
