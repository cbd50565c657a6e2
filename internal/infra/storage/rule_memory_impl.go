package storage

import (
	"sort"
	"sync"

	model "go_stub_server/internal/domain/model/mock_rule"
)

type ruleEntry struct {
	rule     *model.MockRule
	segments []string
	literals int    // 非通配段数量
	seq      uint64 // 插入顺序
}

// MemoryRuleStore keeps rules partitioned by method. The six well-known methods
// use a map keyed by normalized path (last write wins); every other verb goes
// into an append-only list scanned in insertion order.
type MemoryRuleStore struct {
	mu     sync.RWMutex
	keyed  map[model.Method]map[string]*ruleEntry
	others []*ruleEntry
	seq    uint64
}

var _ RuleStoreIface = (*MemoryRuleStore)(nil)

func NewMemoryRuleStore() *MemoryRuleStore {
	s := &MemoryRuleStore{}
	s.reset()
	return s
}

func (s *MemoryRuleStore) reset() {
	s.keyed = make(map[model.Method]map[string]*ruleEntry, len(model.KeyedMethods))
	for _, m := range model.KeyedMethods {
		s.keyed[m] = make(map[string]*ruleEntry)
	}
	s.others = nil
}

// Insert stores a private copy of rule.
func (s *MemoryRuleStore) Insert(rule *model.MockRule) {
	stored := rule.Clone()
	segments := stored.Segments()
	entry := &ruleEntry{
		rule:     stored,
		segments: segments,
		literals: model.CountLiteralSegments(segments),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	entry.seq = s.seq
	if stored.Method.IsOther() {
		s.others = append(s.others, entry)
		return
	}
	s.keyed[stored.Method][stored.Key()] = entry
}

// Lookup returns a copy of the best rule for req.
//
// Keyed methods: every stored pattern is tried, since wildcard keys cannot be
// hashed. Path matches are ordered by literal segment count, then by most recent
// insertion, and the first one whose constraints pass wins.
// Other verbs: first rule in insertion order that passes every check.
func (s *MemoryRuleStore) Lookup(req model.RequestInfo) (*model.MockRule, bool) {
	method := model.ParseMethod(req.GetMethod())
	reqSegments := model.SplitPath(req.GetPath())

	// 持锁只收集候选, 约束检查 (可能读取请求体) 在锁外进行; entry 插入后不再修改
	candidates := s.pathCandidates(method, reqSegments)

	for _, e := range candidates {
		if e.rule.MatchConstraints(req) {
			return e.rule.Clone(), true
		}
	}
	return nil, false
}

func (s *MemoryRuleStore) pathCandidates(method model.Method, reqSegments []string) []*ruleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*ruleEntry
	if method.IsOther() {
		for _, e := range s.others {
			if e.rule.Method == method && model.MatchSegments(e.segments, reqSegments) {
				candidates = append(candidates, e)
			}
		}
		return candidates
	}

	for _, e := range s.keyed[method] {
		if model.MatchSegments(e.segments, reqSegments) {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].literals != candidates[j].literals {
			return candidates[i].literals > candidates[j].literals
		}
		return candidates[i].seq > candidates[j].seq
	})
	return candidates
}

// List returns copies of all rules: keyed methods first (GET, PUT, HEAD, POST,
// PATCH, DELETE, each in insertion order), then other verbs.
func (s *MemoryRuleStore) List() []*model.MockRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]*model.MockRule, 0, s.lenLocked())
	for _, m := range model.KeyedMethods {
		entries := make([]*ruleEntry, 0, len(s.keyed[m]))
		for _, e := range s.keyed[m] {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
		for _, e := range entries {
			rules = append(rules, e.rule.Clone())
		}
	}
	for _, e := range s.others {
		rules = append(rules, e.rule.Clone())
	}
	return rules
}

func (s *MemoryRuleStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *MemoryRuleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lenLocked()
}

func (s *MemoryRuleStore) lenLocked() int {
	n := len(s.others)
	for _, rules := range s.keyed {
		n += len(rules)
	}
	return n
}
