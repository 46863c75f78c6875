// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

package ndspack

import "strings"

// filterMembersBySize keeps members with at least minSize stored bytes.
func filterMembersBySize(members []MemberInfo, minSize int) []MemberInfo {
	if minSize <= 0 {
		return members
	}

	out := make([]MemberInfo, 0, len(members))
	for _, m := range members {
		if m.Size < minSize {
			continue
		}

		out = append(out, m)
	}

	return out
}

// filterMembersByASCIIOnly keeps members whose name contains only ASCII bytes.
func filterMembersByASCIIOnly(members []MemberInfo) []MemberInfo {
	out := make([]MemberInfo, 0, len(members))
	for _, m := range members {
		if !filterNameIsASCIIOnly(m.Name) {
			continue
		}

		out = append(out, m)
	}

	return out
}

// filterNameIsASCIIOnly reports whether name contains only ASCII bytes.
func filterNameIsASCIIOnly(name string) bool {
	for idx := 0; idx < len(name); idx++ {
		if name[idx] >= 0x80 {
			return false
		}
	}

	return true
}

// filterMembersByPrefix keeps members whose name starts with prefix, ignoring case.
func filterMembersByPrefix(members []MemberInfo, prefix string) []MemberInfo {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return members
	}

	out := make([]MemberInfo, 0, len(members))
	for _, m := range members {
		if strings.HasPrefix(strings.ToLower(m.Name), prefix) {
			out = append(out, m)
		}
	}

	return out
}

// filterEmptyMembers removes zero-length members.
func filterEmptyMembers(members []MemberInfo) []MemberInfo {
	if len(members) == 0 {
		return members
	}

	filtered := make([]MemberInfo, 0, len(members))
	for _, m := range members {
		if m.Size == 0 {
			continue
		}

		filtered = append(filtered, m)
	}

	return filtered
}
