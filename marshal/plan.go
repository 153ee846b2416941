package marshal

import (
	"reflect"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
)

// Plan is the compiled marshalling program of one function. It is
// immutable and safe for concurrent use.
type Plan struct {
	fn       *descriptor.Function
	funcType reflect.Type
	params   []codec
	result   codec
}

// Compile builds a Plan with the shared compiler.
func Compile(fn *descriptor.Function) (*Plan, error) {
	return defaultCompiler.Compile(fn)
}

// Compile builds a Plan for fn. Struct representations are checked
// against the C layout.
func (c *Compiler) Compile(fn *descriptor.Function) (*Plan, error) {
	params := make([]codec, fn.NumParams())
	in := make([]reflect.Type, fn.NumParams())
	for i, p := range fn.Params() {
		pc, err := c.codecFor(p.Type)
		if err != nil {
			return nil, wrapCompile(fn.Name(), p.Name, err)
		}
		if pc.Rep() == nil {
			return nil, errors.InvalidDeclaration([]string{fn.Name(), p.Name}, "void parameter")
		}
		params[i] = pc
		in[i] = pc.Rep()
	}

	rc, err := c.codecFor(fn.Result())
	if err != nil {
		return nil, wrapCompile(fn.Name(), "return", err)
	}
	var out []reflect.Type
	if rc.Rep() != nil {
		out = []reflect.Type{rc.Rep()}
	}

	return &Plan{
		fn:       fn,
		funcType: reflect.FuncOf(in, out, false),
		params:   params,
		result:   rc,
	}, nil
}

func wrapCompile(fn, param string, err error) error {
	if e, ok := err.(*errors.Error); ok && len(e.Path) == 0 {
		e.Path = []string{fn, param}
	}
	return err
}

// Function returns the compiled function.
func (p *Plan) Function() *descriptor.Function { return p.fn }

// FuncType returns the Go function type whose calling convention matches
// the native function.
func (p *Plan) FuncType() reflect.Type { return p.funcType }

// Lower converts host arguments. On success the caller must call
// Frame.Finish after the native call returns.
func (p *Plan) Lower(args []any) ([]reflect.Value, *Frame, error) {
	if len(args) != len(p.params) {
		return nil, nil, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Path(p.fn.Name()).
			Detail("expected %d arguments, got %d", len(p.params), len(args)).
			Build()
	}

	f := getFrame(p.fn.Name())
	values := make([]reflect.Value, len(args))
	for i, pc := range p.params {
		v, err := pc.lower([]string{p.fn.Name(), p.fn.Param(i).Name}, args[i], f)
		if err != nil {
			f.Finish()
			return nil, nil, err
		}
		values[i] = v
	}
	return values, f, nil
}

// Lift converts the native result. Void functions lift to nil.
func (p *Plan) Lift(out []reflect.Value) (any, error) {
	if p.result.Rep() == nil {
		return nil, nil
	}
	if len(out) != 1 {
		return nil, errors.InvalidData(errors.PhaseMarshal, []string{p.fn.Name(), "return"}, "missing result")
	}
	return p.result.lift([]string{p.fn.Name(), "return"}, out[0])
}
