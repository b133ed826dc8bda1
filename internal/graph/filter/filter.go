// Package filter implements the regex predicates the graph model uses to
// decide sink membership (whitelist) and to exclude nodes from the
// active-sink reachability traversal (blacklist).
package filter

import (
	"fmt"
	"regexp"
)

// NodeAttrs is the subset of node data a filter can match against. It is
// decoupled from graph.NodeData so this package has no dependency on graph.
type NodeAttrs struct {
	Name             string
	HasName          bool
	AppName          string
	HasAppName       bool
	MediaClass       string
	HasMediaClass    bool
	MediaRole        string
	HasMediaRole     bool
	MediaSoftware    string
	HasMediaSoftware bool
}

// field is a single optional regex predicate. A nil Pattern matches
// vacuously true; a non-nil Pattern with no corresponding node attribute
// matches false.
type field struct {
	pattern *regexp.Regexp
}

func (f field) matches(present bool, value string) bool {
	if f.pattern == nil {
		return true
	}
	if !present {
		return false
	}
	return f.pattern.MatchString(value)
}

// SinkFilter is a whitelist predicate over a node's display name, used to
// decide whether a "Sink"-class node should be tracked as a monitored sink.
type SinkFilter struct {
	name field
}

// NewSinkFilter compiles a sink filter from its TOML-sourced pattern string.
// An empty pattern yields a vacuously-true filter.
func NewSinkFilter(namePattern string) (SinkFilter, error) {
	f, err := compile(namePattern)
	if err != nil {
		return SinkFilter{}, fmt.Errorf("sink_whitelist name pattern: %w", err)
	}
	return SinkFilter{name: f}, nil
}

// Matches reports whether attrs satisfies this sink filter.
func (f SinkFilter) Matches(attrs NodeAttrs) bool {
	return f.name.matches(attrs.HasName, attrs.Name)
}

// NodeFilter is a conjunction of optional regex predicates over several node
// attributes, used for the blacklist.
type NodeFilter struct {
	name          field
	appName       field
	mediaClass    field
	mediaRole     field
	mediaSoftware field
}

// NodeFilterSpec is the raw, as-configured set of patterns for a NodeFilter.
// Empty strings mean "no predicate for this field".
type NodeFilterSpec struct {
	Name          string
	AppName       string
	MediaClass    string
	MediaRole     string
	MediaSoftware string
}

// NewNodeFilter compiles a node filter from its spec.
func NewNodeFilter(spec NodeFilterSpec) (NodeFilter, error) {
	var nf NodeFilter
	var err error
	if nf.name, err = compile(spec.Name); err != nil {
		return NodeFilter{}, fmt.Errorf("node_blacklist name pattern: %w", err)
	}
	if nf.appName, err = compile(spec.AppName); err != nil {
		return NodeFilter{}, fmt.Errorf("node_blacklist app_name pattern: %w", err)
	}
	if nf.mediaClass, err = compile(spec.MediaClass); err != nil {
		return NodeFilter{}, fmt.Errorf("node_blacklist media_class pattern: %w", err)
	}
	if nf.mediaRole, err = compile(spec.MediaRole); err != nil {
		return NodeFilter{}, fmt.Errorf("node_blacklist media_role pattern: %w", err)
	}
	if nf.mediaSoftware, err = compile(spec.MediaSoftware); err != nil {
		return NodeFilter{}, fmt.Errorf("node_blacklist media_software pattern: %w", err)
	}
	return nf, nil
}

// Matches reports whether attrs satisfies every predicate in this filter.
func (f NodeFilter) Matches(attrs NodeAttrs) bool {
	return f.name.matches(attrs.HasName, attrs.Name) &&
		f.appName.matches(attrs.HasAppName, attrs.AppName) &&
		f.mediaClass.matches(attrs.HasMediaClass, attrs.MediaClass) &&
		f.mediaRole.matches(attrs.HasMediaRole, attrs.MediaRole) &&
		f.mediaSoftware.matches(attrs.HasMediaSoftware, attrs.MediaSoftware)
}

// MatchesAllSinks reports whether attrs satisfies every filter in the list.
// An empty list is vacuously true.
func MatchesAllSinks(filters []SinkFilter, attrs NodeAttrs) bool {
	for _, f := range filters {
		if !f.Matches(attrs) {
			return false
		}
	}
	return true
}

// MatchesAnySink reports whether attrs satisfies at least one filter in the
// list. An empty list is false.
func MatchesAnySink(filters []SinkFilter, attrs NodeAttrs) bool {
	for _, f := range filters {
		if f.Matches(attrs) {
			return true
		}
	}
	return false
}

// MatchesAnyNode reports whether attrs satisfies at least one filter in the
// list. An empty list is false — this is the shape node_blacklist membership
// uses: a node is blacklisted if it matches any configured filter.
func MatchesAnyNode(filters []NodeFilter, attrs NodeAttrs) bool {
	for _, f := range filters {
		if f.Matches(attrs) {
			return true
		}
	}
	return false
}

func compile(pattern string) (field, error) {
	if pattern == "" {
		return field{}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return field{}, err
	}
	return field{pattern: re}, nil
}
