package calib

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEngineOption configures an expr engine instance.
type ExprEngineOption func(*exprEngine)

// ExprWithProgramCache wires a ProgramCache into the expr engine.
func ExprWithProgramCache(cache ProgramCache) ExprEngineOption {
	return func(e *exprEngine) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr engine.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEngineOption {
	return func(e *exprEngine) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEngine evaluates transform expressions using github.com/expr-lang/expr.
type exprEngine struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEngine constructs an Evaluator backed by expr-lang/expr.
func NewExprEngine(opts ...ExprEngineOption) Evaluator {
	e := &exprEngine{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles and runs expression against env.
func (e *exprEngine) Evaluate(env map[string]any, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvalError("expr", expression, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, e.environment(env))
	if err != nil {
		return nil, wrapEvalError("expr", expression, err)
	}
	return result, nil
}

// Compile returns a reusable program for expression.
func (e *exprEngine) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, wrapEvalError("expr", expression, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprProgram{engine: e, program: program, expression: expression}, nil
}

func (e *exprEngine) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.registryNames() {
		options = append(options, exprlang.Function(name, e.registryFunction(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvalError("expr", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

type exprProgram struct {
	engine     *exprEngine
	program    *exprvm.Program
	expression string
}

func (p *exprProgram) Evaluate(env map[string]any) (any, error) {
	if p.engine == nil || p.program == nil {
		return nil, wrapEvalError("expr", p.expression, fmt.Errorf("program not compiled"))
	}
	result, err := exprlang.Run(p.program, p.engine.environment(env))
	if err != nil {
		return nil, wrapEvalError("expr", p.expression, err)
	}
	return result, nil
}

func (e *exprEngine) environment(env map[string]any) map[string]any {
	out := make(map[string]any, len(env)+1)
	for key, value := range env {
		out[key] = value
	}
	if e.registry != nil {
		out["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
		for _, name := range e.registry.Names() {
			fn := name
			out[fn] = func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}
		}
	}
	return out
}

func (e *exprEngine) registryNames() []string {
	if e == nil || e.registry == nil {
		return nil
	}
	return e.registry.Names()
}

func (e *exprEngine) registryFunction(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}
}
