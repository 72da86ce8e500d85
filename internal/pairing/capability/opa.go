package capability

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const capabilityQuery = "data.pairing.capability.allow"

// Default Rego policy: every prerequisite is treated as satisfied. This is the
// historical behavior made visible; deployments override it with their own
// modules to gate manual fallbacks on real account state.
const defaultRegoPolicy = `package pairing.capability

default allow = true
`

// OPAChecker evaluates capability prerequisites with OPA Rego. Input is
// {"session_id": ..., "requires": [...]} and the decision is
// data.pairing.capability.allow.
type OPAChecker struct {
	modules map[string]string
}

// NewOPAChecker returns a Checker over the given Rego modules. With no
// modules the default allow-all policy is used.
func NewOPAChecker(modules map[string]string) *OPAChecker {
	return &OPAChecker{modules: modules}
}

// HealthCheck verifies the in-process Rego engine can compile and evaluate
// the default policy. Returns nil on success.
func (c *OPAChecker) HealthCheck(ctx context.Context) error {
	_, err := c.eval(ctx, map[string]interface{}{
		"session_id": "",
		"requires":   []string{},
	})
	return err
}

// Satisfied evaluates the configured policy for (sessionID, requires).
// Evaluation failures are logged and fail open to the default, matching the
// engine's "assume satisfiable unless told otherwise" contract.
func (c *OPAChecker) Satisfied(ctx context.Context, sessionID string, requires []string) (bool, error) {
	input := map[string]interface{}{
		"session_id": sessionID,
		"requires":   requires,
	}
	allowed, err := c.eval(ctx, input)
	if err != nil {
		log.Printf("capability: evaluation failed for session %s: %v, allowing", sessionID, err)
		return true, nil
	}
	return allowed, nil
}

func (c *OPAChecker) eval(ctx context.Context, input map[string]interface{}) (bool, error) {
	modules := map[string]string{"capability_default.rego": defaultRegoPolicy}
	i := 0
	for name, src := range c.modules {
		if src == "" {
			continue
		}
		modules[fmt.Sprintf("capability_%d_%s.rego", i, name)] = src
		i++
	}
	// Configured modules replace the default rather than merging with it.
	if i > 0 {
		delete(modules, "capability_default.rego")
	}

	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return false, fmt.Errorf("compile capability policy: %w", err)
	}
	q := rego.New(
		rego.Query(capabilityQuery),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval capability policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("capability query returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("capability decision is not a boolean")
	}
	return allowed, nil
}
