package telegram

import (
	"fmt"
	"net/url"
	"strings"
)

// JoinTarget is a parsed group reference ready for the join call.
type JoinTarget struct {
	Invite bool
	// Value is the invite hash when Invite is set, otherwise the
	// public handle.
	Value string
}

// ParseGroupRef resolves a group reference into a join target. Invite
// forms are "+HASH" and "joinchat/HASH" paths (with or without the
// t.me origin); everything else is treated as a public handle.
func ParseGroupRef(raw string) (JoinTarget, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return JoinTarget{}, fmt.Errorf("empty group reference")
	}

	path := text
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		u, err := url.Parse(text)
		if err != nil {
			return JoinTarget{}, fmt.Errorf("parse group link: %w", err)
		}
		path = strings.TrimPrefix(u.Path, "/")
	} else {
		path = strings.TrimPrefix(path, "t.me/")
		path = strings.TrimPrefix(path, "telegram.me/")
	}
	if path == "" {
		return JoinTarget{}, fmt.Errorf("unrecognized group reference %q", raw)
	}

	if strings.HasPrefix(path, "+") {
		return JoinTarget{Invite: true, Value: strings.TrimPrefix(path, "+")}, nil
	}
	if rest, ok := strings.CutPrefix(strings.ToLower(path), "joinchat/"); ok {
		// Preserve the original-case hash.
		return JoinTarget{Invite: true, Value: path[len(path)-len(rest):]}, nil
	}

	handle := path
	if i := strings.IndexByte(handle, '/'); i >= 0 {
		handle = handle[:i]
	}
	return JoinTarget{Invite: false, Value: handle}, nil
}
