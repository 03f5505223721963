package query

// Collection is an event collection owned by a storage layer. Each call
// narrows, orders or pages the collection and returns the result.
type Collection interface {
	Where(filter Expr) Collection
	OrderBy(order Order) Collection
	Skip(n int) Collection
	Take(n int) Collection
}

// Order is the single ordering stage of a plan.
type Order struct {
	Attr      Attr
	Ascending bool
}

// Plan is a composed filter, order and pagination specification built
// from query parameters.
type Plan struct {
	filters   []Expr
	orderBy   Attr
	ascending bool
	skip      int
	take      int
	limited   bool
}

// Build scans params once, in order, and assembles a plan. It fails on
// the first parameter that cannot be translated; no partial plan is returned.
func Build(params []Parameter) (*Plan, error) {
	plan := &Plan{}
	for _, p := range params {
		if err := plan.add(p); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (plan *Plan) add(p Parameter) error {
	r, captures := lookup(p.Name)
	if r == nil {
		return notImplemented(p.Name)
	}
	return r.build(plan, p, captures)
}

// Apply runs the plan against c: filters first, then the order stage,
// then pagination, whatever order the parameters came in.
func (plan *Plan) Apply(c Collection) Collection {
	for _, f := range plan.filters {
		c = c.Where(f)
	}
	if plan.orderBy != "" {
		c = c.OrderBy(Order{Attr: plan.orderBy, Ascending: plan.ascending})
	}
	c = c.Skip(plan.skip)
	if plan.limited {
		c = c.Take(plan.take)
	}
	return c
}

// Len returns the number of filter stages.
func (plan *Plan) Len() int {
	return len(plan.filters)
}

func (plan *Plan) filter(e Expr) {
	plan.filters = append(plan.filters, e)
}

func (plan *Plan) skipAtLeast(n int) {
	if n > plan.skip {
		plan.skip = n
	}
}

func (plan *Plan) takeAtMost(n int) {
	if !plan.limited || n < plan.take {
		plan.take = n
		plan.limited = true
	}
}
