package calib

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEngineOption configures the CEL engine.
type CELEngineOption func(*celEngine)

// CELWithProgramCache wires a ProgramCache into the CEL engine.
func CELWithProgramCache(cache ProgramCache) CELEngineOption {
	return func(e *celEngine) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL engine.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEngineOption {
	return func(e *celEngine) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celBundle struct {
	env     *celgo.Env
	program celgo.Program
}

type celEngine struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEngine constructs an Evaluator backed by cel-go.
func NewCELEngine(opts ...CELEngineOption) Evaluator {
	e := &celEngine{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles and runs expression against env.
func (e *celEngine) Evaluate(env map[string]any, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvalError("cel", expression, fmt.Errorf("expression must not be empty"))
	}
	bundle, err := e.loadOrCompile(expression, env)
	if err != nil {
		return nil, err
	}
	out, _, err := bundle.program.Eval(e.activation(env))
	if err != nil {
		return nil, wrapEvalError("cel", expression, err)
	}
	return out.Value(), nil
}

// Compile returns a reusable program for expression.
func (e *celEngine) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, wrapEvalError("cel", expression, fmt.Errorf("expression must not be empty"))
	}
	return &celCompiled{engine: e, expression: expression}, nil
}

func (e *celEngine) loadOrCompile(expression string, env map[string]any) (*celBundle, error) {
	if env == nil {
		env = map[string]any{}
	}
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if bundle, ok := cached.(*celBundle); ok {
				return bundle, nil
			}
		}
	}

	celEnv, err := e.buildEnv(env)
	if err != nil {
		return nil, wrapEvalError("cel", expression, err)
	}
	ast, issues := celEnv.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvalError("cel", expression, issues.Err())
	}
	checked, issues := celEnv.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvalError("cel", expression, issues.Err())
	}
	prg, err := celEnv.Program(checked)
	if err != nil {
		return nil, wrapEvalError("cel", expression, err)
	}

	bundle := &celBundle{env: celEnv, program: prg}
	if e.cache != nil {
		e.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (e *celEngine) buildEnv(env map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{}
	for key := range env {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.DynType},
			celgo.DynType,
			celgo.FunctionBinding(e.callBinding()),
		)))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEngine) activation(env map[string]any) map[string]any {
	activation := make(map[string]any, len(env)+1)
	for key, value := range env {
		activation[key] = value
	}
	if e.registry != nil {
		activation["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
	}
	return activation
}

type celCompiled struct {
	engine     *celEngine
	expression string
}

func (p *celCompiled) Evaluate(env map[string]any) (any, error) {
	if p.engine == nil {
		return nil, wrapEvalError("cel", p.expression, fmt.Errorf("program missing engine"))
	}
	bundle, err := p.engine.loadOrCompile(p.expression, env)
	if err != nil {
		return nil, err
	}
	out, _, err := bundle.program.Eval(p.engine.activation(env))
	if err != nil {
		return nil, wrapEvalError("cel", p.expression, err)
	}
	return out.Value(), nil
}

func (e *celEngine) callBinding() functions.FunctionOp {
	return func(values ...ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("calib: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("calib: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("calib: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
