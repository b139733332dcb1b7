package quote

// DerivedQuote applies a function to another quote.
type DerivedQuote struct {
	src Quote
	fn  func(float64) float64
}

// Derived returns a quote whose value is fn(src).
func Derived(src Quote, fn func(float64) float64) *DerivedQuote {
	return &DerivedQuote{src: src, fn: fn}
}

func (d *DerivedQuote) Value() (float64, error) {
	v, err := d.src.Value()
	if err != nil {
		return 0, err
	}
	return d.fn(v), nil
}

func (d *DerivedQuote) IsValid() bool      { return d.src.IsValid() }
func (d *DerivedQuote) Generation() uint64 { return d.src.Generation() }

// CompositeQuote combines two quotes.
type CompositeQuote struct {
	a, b Quote
	fn   func(a, b float64) float64
}

// Composite returns a quote whose value is fn(a, b).
func Composite(a, b Quote, fn func(a, b float64) float64) *CompositeQuote {
	return &CompositeQuote{a: a, b: b, fn: fn}
}

func (c *CompositeQuote) Value() (float64, error) {
	x, err := c.a.Value()
	if err != nil {
		return 0, err
	}
	y, err := c.b.Value()
	if err != nil {
		return 0, err
	}
	return c.fn(x, y), nil
}

func (c *CompositeQuote) IsValid() bool      { return c.a.IsValid() && c.b.IsValid() }
func (c *CompositeQuote) Generation() uint64 { return c.a.Generation() + c.b.Generation() }

// Spread is a Composite that adds b to a.
func Spread(a, b Quote) *CompositeQuote {
	return Composite(a, b, func(x, y float64) float64 { return x + y })
}
