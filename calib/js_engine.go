//go:build js_eval

package calib

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEngine struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEngine constructs an Evaluator backed by goja.
func NewJSEngine(opts ...JSEngineOption) Evaluator {
	cfg := applyJSEngineOptions(opts)
	return &jsEngine{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *jsEngine) Evaluate(env map[string]any, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvalError("js", expression, fmt.Errorf("expression must not be empty"))
	}
	if e.cache == nil {
		return e.run(env, expression, nil)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(env, expression, program)
}

func (e *jsEngine) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, wrapEvalError("js", expression, fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsProgram{
		engine:     e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsEngine) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", e.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapEvalError("js", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsEngine) run(env map[string]any, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	e.injectEnv(vm, env)
	if program != nil {
		value, err := vm.RunProgram(program)
		if err != nil {
			return nil, wrapEvalError("js", expression, err)
		}
		return value.Export(), nil
	}
	value, err := vm.RunString(e.wrapExpression(expression))
	if err != nil {
		return nil, wrapEvalError("js", expression, err)
	}
	return value.Export(), nil
}

func (e *jsEngine) injectEnv(vm *goja.Runtime, env map[string]any) {
	for key, value := range env {
		vm.Set(key, value)
	}
	if e.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		})
		for _, name := range e.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			})
		}
	}
}

func (e *jsEngine) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsProgram struct {
	engine     *jsEngine
	expression string
	program    *goja.Program
}

func (p *jsProgram) Evaluate(env map[string]any) (any, error) {
	if p.engine == nil {
		return nil, wrapEvalError("js", p.expression, fmt.Errorf("program missing engine"))
	}
	return p.engine.run(env, p.expression, p.program)
}

func jsEngineAvailable() bool {
	return true
}
