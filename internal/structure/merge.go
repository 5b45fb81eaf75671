package structure

import (
	"reflect"

	"github.com/roach88/verilib/internal/model"
)

// MergeResult is the outcome of Merge.
type MergeResult struct {
	Entries   []model.Entry
	Added     int
	Updated   int
	Unchanged int
	// Pruned lists keys of hidden entries dropped because the new data no
	// longer mentions them. Missing lists keys of visible entries kept but
	// flagged for the same reason.
	Pruned  []string
	Missing []string
}

// Merge folds incoming entries into existing ones.
//
// Entries match by identifier when both sides carry one, otherwise by origin,
// otherwise by document path. A matched entry takes every field the incoming
// entry sets and keeps every field it leaves unset, so enrichment never turns
// a known fact back into an unknown one. Unmatched incoming entries are
// appended. An unmatched existing entry is dropped when it is hidden
// (visible=false) and kept with Missing set otherwise.
func Merge(existing, incoming []model.Entry) MergeResult {
	byID := make(map[model.Identifier]int)
	byOrigin := make(map[string]int)
	byPath := make(map[string]int)
	for i, e := range existing {
		if e.Identifier != "" {
			byID[e.Identifier] = i
		}
		if e.Origin != nil {
			if _, taken := byOrigin[e.Origin.Key()]; !taken {
				byOrigin[e.Origin.Key()] = i
			}
		}
		if e.Path != "" {
			byPath[e.Path] = i
		}
	}

	merged := make([]model.Entry, len(existing))
	for i, e := range existing {
		merged[i] = e.Clone()
	}
	matched := make([]bool, len(existing))

	var result MergeResult
	var added []model.Entry

	for _, n := range incoming {
		idx := matchIndex(existing, matched, n, byID, byOrigin, byPath)
		if idx < 0 {
			e := n.Clone()
			e.Missing = false
			added = append(added, e)
			result.Added++
			continue
		}

		matched[idx] = true
		before := merged[idx]
		merged[idx] = overlay(merged[idx], n)
		if reflect.DeepEqual(before, merged[idx]) {
			result.Unchanged++
		} else {
			result.Updated++
		}
	}

	out := make([]model.Entry, 0, len(merged)+len(added))
	for i, e := range merged {
		if !matched[i] {
			if e.Visible != nil && !*e.Visible {
				result.Pruned = append(result.Pruned, e.Key())
				continue
			}
			e.Missing = true
			result.Missing = append(result.Missing, e.Key())
		}
		out = append(out, e)
	}
	result.Entries = append(out, added...)
	return result
}

func matchIndex(existing []model.Entry, matched []bool, n model.Entry,
	byID map[model.Identifier]int, byOrigin, byPath map[string]int) int {
	if n.Identifier != "" {
		if i, ok := byID[n.Identifier]; ok && !matched[i] {
			return i
		}
	}
	if n.Origin != nil {
		if i, ok := byOrigin[n.Origin.Key()]; ok && !matched[i] {
			old := existing[i].Identifier
			if old == "" || n.Identifier == "" || old == n.Identifier {
				return i
			}
		}
	}
	if n.Identifier == "" && n.Origin == nil && n.Path != "" {
		if i, ok := byPath[n.Path]; ok && !matched[i] {
			return i
		}
	}
	return -1
}

// overlay applies every field set on n to old.
func overlay(old, n model.Entry) model.Entry {
	out := old
	if n.Identifier != "" {
		out.Identifier = n.Identifier
	}
	if n.Origin != nil {
		o := *n.Origin
		out.Origin = &o
	}
	if n.Module != "" {
		out.Module = n.Module
	}
	if n.DisplayName != "" {
		out.DisplayName = n.DisplayName
	}
	if n.Dependencies != nil {
		out.Dependencies = append([]model.Identifier{}, n.Dependencies...)
	}
	if n.Specified != nil {
		out.Specified = model.Bool(*n.Specified)
	}
	if n.Verified != nil {
		out.Verified = model.Bool(*n.Verified)
	}
	if n.Visible != nil {
		out.Visible = model.Bool(*n.Visible)
	}
	if out.Path == "" {
		out.Path = n.Path
	}
	if n.Body != "" {
		out.Body = n.Body
	}
	if n.Content != "" {
		out.Content = n.Content
	}
	out.Attrs = mergeAttrs(old.Attrs, n.Attrs)
	out.HeaderAttrs = mergeAttrs(old.HeaderAttrs, n.HeaderAttrs)
	out.Missing = false
	return out
}

func mergeAttrs(old, n map[string]any) map[string]any {
	if len(n) == 0 {
		return old
	}
	out := make(map[string]any, len(old)+len(n))
	for k, v := range old {
		out[k] = v
	}
	for k, v := range n {
		out[k] = v
	}
	return out
}
