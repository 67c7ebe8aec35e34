package routing

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"voip-routing/internal/models"
)

const recordSessionPath = "$${recordings_dir}/${uuid}.wav"

// RuleResult is the outcome of evaluating a tenant's dialplan rules.
type RuleResult struct {
	Matched bool
	Actions []Action
	// InheritDefault is set when any matched rule asked for the cascade's
	// actions to be appended.
	InheritDefault bool
	RuleIDs        []string
}

// RuleEngine evaluates tenant dialplan rules. Compiled regexes are cached
// by pattern for one snapshot generation; the cache is safe for concurrent
// use.
type RuleEngine struct {
	Logger *slog.Logger

	cache atomic.Pointer[patternCache]
}

type patternCache struct {
	generation uint64
	patterns   sync.Map // pattern -> *regexp.Regexp, nil for invalid patterns
}

// Evaluate walks the tenant's enabled rules by ascending priority and
// accumulates the actions of every matching rule until one with
// StopOnMatch matches. generation identifies the snapshot the rules came
// from; a newer one discards every pattern compiled for older snapshots.
func (e *RuleEngine) Evaluate(generation uint64, tenant models.Tenant, destination string, rules []models.DialplanRule) RuleResult {
	patterns := e.patterns(generation)


	active := make([]models.DialplanRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled && r.TenantID == tenant.ID {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Priority < active[j].Priority })

	var res RuleResult
	for _, r := range active {
		if !e.matches(patterns, r, destination) {
			continue
		}
		res.Matched = true
		res.RuleIDs = append(res.RuleIDs, r.ID)
		if r.Record {
			res.Actions = append(res.Actions, Action{Application: "record_session", Data: recordSessionPath})
		}
		res.Actions = append(res.Actions, fromModel(sortedActions(r.Actions))...)
		if r.InheritDefault {
			res.InheritDefault = true
		}
		if r.StopOnMatch {
			break
		}
	}
	return res
}

func (e *RuleEngine) matches(patterns *sync.Map, r models.DialplanRule, destination string) bool {
	switch r.MatchType {
	case models.MatchExact:
		return destination == r.Pattern
	case models.MatchPrefix:
		return strings.HasPrefix(destination, r.Pattern)
	case models.MatchRegex:
		re := e.compile(patterns, r)
		return re != nil && re.MatchString(destination)
	default:
		e.logger().Warn("dialplan rule skipped, unknown match type",
			"rule", r.ID,
			"tenant", r.TenantID,
			"match_type", r.MatchType,
		)
		return false
	}
}

// compile anchors patterns that carry no explicit anchor so they must
// match the whole destination.
func (e *RuleEngine) compile(patterns *sync.Map, r models.DialplanRule) *regexp.Regexp {
	if v, ok := patterns.Load(r.Pattern); ok {
		re, _ := v.(*regexp.Regexp)
		return re
	}

	expr := r.Pattern
	if !strings.HasPrefix(expr, "^") && !strings.HasSuffix(expr, "$") {
		expr = "^(?:" + expr + ")$"
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		e.logger().Warn("dialplan rule skipped, invalid regex",
			"rule", r.ID,
			"tenant", r.TenantID,
			"pattern", r.Pattern,
			"error", err,
		)
		patterns.Store(r.Pattern, (*regexp.Regexp)(nil))
		return nil
	}
	patterns.Store(r.Pattern, re)
	return re
}

// patterns returns the cache for generation. Requests still holding an
// older snapshot after a swap compile into a throwaway map.
func (e *RuleEngine) patterns(generation uint64) *sync.Map {
	for {
		cur := e.cache.Load()
		if cur != nil && cur.generation == generation {
			return &cur.patterns
		}
		if cur != nil && cur.generation > generation {
			return new(sync.Map)
		}
		next := &patternCache{generation: generation}
		if e.cache.CompareAndSwap(cur, next) {
			return &next.patterns
		}
	}
}

func sortedActions(actions []models.DialplanAction) []models.DialplanAction {
	if sort.SliceIsSorted(actions, func(i, j int) bool { return actions[i].Position < actions[j].Position }) {
		return actions
	}
	out := append([]models.DialplanAction(nil), actions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (e *RuleEngine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
