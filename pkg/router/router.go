// Package router tracks which content view is mounted.
package router

import (
	"fmt"
	"strings"
	"sync"
)

// View names one of the content views.
type View string

const (
	Moments View = "moments"
	Journal View = "journal"
	Purpose View = "purpose"
)

// Default is the view selected at start.
const Default = Moments

// Views lists the views in tab order.
func Views() []View {
	return []View{Moments, Journal, Purpose}
}

func (v View) String() string { return string(v) }

// Title is the tab label.
func (v View) Title() string {
	switch v {
	case Moments:
		return "Our Moments"
	case Journal:
		return "Journal"
	case Purpose:
		return "Our Purpose"
	default:
		return string(v)
	}
}

// Parse accepts a view name or its first letter.
func Parse(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "moments", "moment", "m":
		return Moments, nil
	case "journal", "j":
		return Journal, nil
	case "purpose", "p":
		return Purpose, nil
	}
	return "", fmt.Errorf("router: unknown view %q", s)
}

// Router holds the current selection. It has no persistence.
type Router struct {
	mu      sync.RWMutex
	current View
}

func New() *Router {
	return &Router{current: Default}
}

func (r *Router) Current() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Select switches to v and reports whether the selection changed.
func (r *Router) Select(v View) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == v {
		return false
	}
	r.current = v
	return true
}

// Next returns the view after the current one, wrapping around.
func (r *Router) Next() View {
	views := Views()
	cur := r.Current()
	for i, v := range views {
		if v == cur {
			return views[(i+1)%len(views)]
		}
	}
	return Default
}
