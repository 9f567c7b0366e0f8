package expr

// namedBinding is one name -> expression pair in a let chain, evaluated in
// order so later bindings (and the body) may reference earlier names.
type namedBinding struct {
	name  string
	value rawNode
}

// letBuilder accumulates bindings for Define(...).As(...).And(...).As(...).
type letBuilder struct {
	bindings []namedBinding
}

// letPending holds a binding name awaiting its .As(expr).
type letPending struct {
	prior []namedBinding
	name  string
}

// Define starts a local-variable binding chain: Define(name).As(expr)...
func Define(name string) *letPending {
	return &letPending{name: name}
}

// As supplies the bound expression for the pending name.
func (p *letPending) As(value Expr) *letBuilder {
	bindings := make([]namedBinding, len(p.prior), len(p.prior)+1)
	copy(bindings, p.prior)
	bindings = append(bindings, namedBinding{name: p.name, value: value.rawNode()})
	return &letBuilder{bindings: bindings}
}

// And introduces another binding name, shadowing any outer binding of the
// same name within the resulting body.
func (b *letBuilder) And(name string) *letPending {
	return &letPending{prior: b.bindings, name: name}
}

// Then closes the chain with a body expression evaluated in scope of all
// bindings.
func (b *letBuilder) Then(body Expr) *letInChain {
	return &letInChain{bindings: b.bindings, body: body.rawNode()}
}

// letInChain is the type-erased LetIn node; wrap with AsInt/AsFloat/... to
// recover a typed handle.
type letInChain struct {
	bindings []namedBinding
	body     rawNode
}

func (c *letInChain) rawNode() rawNode { return c }

func (c *letInChain) resultType() ResultType { return c.body.resultType() }

func (c *letInChain) lower(ctx *lowerCtx) (*IRNode, error) {
	irBindings := make([]IRBinding, 0, len(c.bindings))
	pushed := 0
	defer func() {
		for i := 0; i < pushed; i++ {
			ctx.pop()
		}
	}()
	for _, b := range c.bindings {
		lowered, err := b.value.lower(ctx)
		if err != nil {
			return nil, err
		}
		irBindings = append(irBindings, IRBinding{Name: b.name, Value: lowered})
		ctx.push(b.name, b.value.resultType())
		pushed++
	}
	body, err := c.body.lower(ctx)
	if err != nil {
		return nil, err
	}
	return &IRNode{
		Kind:       IRLetIn,
		ResultType: body.ResultType,
		Bindings:   irBindings,
		Body:       body,
	}, nil
}

func (c *letInChain) describe() string {
	s := ""
	for _, b := range c.bindings {
		s += "define " + b.name + " as " + b.value.describe() + " "
	}
	return s + "then " + c.body.describe()
}
