package tool

import (
	"context"
	"fmt"

	"github.com/umlforge/umlforge/internal/util"
)

// Function adapts a plain Go function into an invocable tool.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like parameter specification
//   - Validates supplied arguments against that schema before execution
//   - Normalizes error handling so callers receive *InvocationError with
//     consistent codes: VALIDATION_ERROR for schema mismatches,
//     EXECUTION_ERROR for underlying failures (custom codes preserved when
//     the function returns *InvocationError directly)
//
// A Function has no internal mutable state after construction and is safe
// for concurrent use by multiple goroutines.
type Function struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunction constructs a Function tool from explicit schema and implementation.
//
// Example:
//
//	countTool := NewFunction(
//	  "count_classes",
//	  "Count the classes declared in a UML spec",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "spec": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"spec"},
//	  },
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return strings.Count(args["spec"].(string), "class "), nil
//	  },
//	)
func NewFunction(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *Function {
	return &Function{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionFromStruct derives the parameter schema from a struct using
// reflection, equivalent to util.CreateSchema(structType).
func NewFunctionFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *Function {
	return NewFunction(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique tool name.
func (t *Function) Name() string { return t.name }

// Definition returns the declarative description exposed to models.
func (t *Function) Definition() Definition {
	return Definition{Name: t.name, Description: t.description, InputSchema: t.parameters}
}

// call validates args against the declared schema then invokes the function.
func (t *Function) call(ctx context.Context, args map[string]any) (any, error) {
	if err := util.ValidateParameters(args, t.parameters); err != nil {
		return nil, &InvocationError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		if invErr, ok := err.(*InvocationError); ok {
			return nil, invErr
		}
		return nil, &InvocationError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	return result, nil
}

// Registry is an in-process Provider backed by Function tools. It is
// populated at construction time and immutable afterwards.
type Registry struct {
	tools map[string]*Function
	order []string
}

// NewRegistry builds a Provider from the given functions. Duplicate names
// are a construction error.
func NewRegistry(fns ...*Function) (*Registry, error) {
	r := &Registry{tools: make(map[string]*Function, len(fns))}
	for _, fn := range fns {
		if _, exists := r.tools[fn.Name()]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", fn.Name())
		}
		r.tools[fn.Name()] = fn
		r.order = append(r.order, fn.Name())
	}
	return r, nil
}

// List implements Provider, returning definitions in registration order.
func (r *Registry) List(_ context.Context) ([]Definition, error) {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs, nil
}

// Invoke implements Provider.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	fn, ok := r.tools[name]
	if !ok {
		return nil, NewInvocationError(name, "unknown tool", "UNKNOWN_TOOL")
	}
	return fn.call(ctx, args)
}
