package model

import (
	"strings"
)

const WildcardSegment = "*"

// NormalizePath 统一路径格式, 作为存储 key 使用
//
//	facts/random          => /facts/random
//	/api/users/           => /api/users
//	/api/users?id=123     => /api/users
//	""                    => /
func NormalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return "/" + strings.Join(SplitPath(path), "/")
}

// SplitPath splits a slash-delimited path into segments. Leading and trailing
// slashes are dropped; interior empty segments are kept, so "/a//b" has three
// segments. The root path has no segments.
func SplitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "/")
}

// IsWildcardSegment reports whether a pattern segment matches any single segment.
//
//	*  **  :id  {id}
func IsWildcardSegment(seg string) bool {
	switch {
	case seg == "":
		return false
	case strings.Trim(seg, "*") == "":
		return true
	case len(seg) > 1 && seg[0] == ':':
		return true
	case len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}':
		return true
	}
	return false
}

// MatchSegments compares pattern and request segments position by position.
// Counts must be equal; there is no prefix or suffix matching.
func MatchSegments(pattern, request []string) bool {
	if len(pattern) != len(request) {
		return false
	}
	for i, seg := range pattern {
		if IsWildcardSegment(seg) {
			continue
		}
		if seg != request[i] {
			return false
		}
	}
	return true
}

// MatchPath reports whether requestPath satisfies pattern.
func MatchPath(pattern, requestPath string) bool {
	return MatchSegments(SplitPath(pattern), SplitPath(requestPath))
}

// CountLiteralSegments 非通配段数量, 用于多个规则同时命中时的优先级
func CountLiteralSegments(segments []string) int {
	n := 0
	for _, seg := range segments {
		if !IsWildcardSegment(seg) {
			n++
		}
	}
	return n
}
