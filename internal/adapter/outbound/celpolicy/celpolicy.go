// Package celpolicy implements shaper.HeaderPolicy with CEL-evaluated rules,
// compiled once and cached by expression hash the way the teacher's policy
// service caches compiled programs.
package celpolicy

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/cel-go/cel"

	"github.com/summitto/tlsn-prover-gateway/internal/config"
)

// maxCostBudget keeps evaluation synchronous and bounded only by CEL's
// own cost limit; header policy runs on every forwarded header so it must
// stay cheap, unlike a general-purpose policy engine.
const maxCostBudget = 10_000

// Policy evaluates config.HeaderRule conditions against each forwarded
// header, dropping the header when any rule's condition evaluates true.
// Never evaluated against the mandatory blocked-header set — those headers
// never reach Policy because the shaper already stripped them upstream.
type Policy struct {
	env   *cel.Env
	rules []compiledRule
	mu    sync.Mutex
	cache map[uint64]cel.Program
}

type compiledRule struct {
	name string
	expr string
}

// New compiles an environment exposing `header.name` and `header.value` as
// string variables, and pre-compiles every configured rule so a bad
// expression fails at startup rather than on the first request.
func New(rules []config.HeaderRule) (*Policy, error) {
	env, err := cel.NewEnv(
		cel.Variable("header", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("celpolicy: building CEL environment: %w", err)
	}

	p := &Policy{
		env:   env,
		cache: make(map[uint64]cel.Program, len(rules)),
	}

	for _, r := range rules {
		p.rules = append(p.rules, compiledRule{name: r.Name, expr: r.Condition})
		if _, err := p.compile(r.Condition); err != nil {
			return nil, fmt.Errorf("celpolicy: rule %q: %w", r.Name, err)
		}
	}

	return p, nil
}

// ShouldDrop evaluates every configured rule against (name, value); the
// header is dropped if any rule's condition evaluates true.
func (p *Policy) ShouldDrop(name, value string) (bool, error) {
	if len(p.rules) == 0 {
		return false, nil
	}

	activation := map[string]any{
		"header": map[string]string{"name": name, "value": value},
	}

	for _, r := range p.rules {
		prg, err := p.compile(r.expr)
		if err != nil {
			return false, fmt.Errorf("celpolicy: compiling rule %q: %w", r.name, err)
		}

		out, _, err := prg.Eval(activation)
		if err != nil {
			return false, fmt.Errorf("celpolicy: evaluating rule %q: %w", r.name, err)
		}

		drop, ok := out.Value().(bool)
		if !ok {
			return false, fmt.Errorf("celpolicy: rule %q did not evaluate to bool", r.name)
		}
		if drop {
			return true, nil
		}
	}

	return false, nil
}

// compile returns the cached program for expr, compiling and caching it on
// first use keyed by its xxhash, the same cache-by-hash approach the
// teacher's CEL-backed policy service uses for decision caching.
func (p *Policy) compile(expr string) (cel.Program, error) {
	key := xxhash.Sum64String(expr)

	p.mu.Lock()
	defer p.mu.Unlock()

	if prg, ok := p.cache[key]; ok {
		return prg, nil
	}

	ast, issues := p.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	prg, err := p.env.Program(ast, cel.EvalOptions(cel.OptOptimize), cel.CostLimit(maxCostBudget))
	if err != nil {
		return nil, err
	}

	p.cache[key] = prg
	return prg, nil
}
