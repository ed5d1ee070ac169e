package datum

// Class is a byte membership table. Lookups are a single index, so a loop
// over a Class has no data-dependent branches besides its exit.
type Class [256]bool

// ClassOf builds a class holding every byte of set.
func ClassOf(set string) Class {
	var c Class
	for i := 0; i < len(set); i++ {
		c[set[i]] = true
	}
	return c
}

// Union returns a class holding the bytes of both c and o.
func (c Class) Union(o Class) Class {
	for i := range c {
		c[i] = c[i] || o[i]
	}
	return c
}

// Contains reports whether b belongs to c.
func (c *Class) Contains(b byte) bool {
	return c[b]
}

// Read-only classes shared by the decoders.
var (
	Space   = ClassOf(" \t")
	LineEnd = ClassOf("\r\n")
	Digit   = ClassOf("0123456789")

	// Whitespace is every byte that ends a token or version string.
	Whitespace = Space.Union(LineEnd)

	// TokenStop ends a header name.
	TokenStop = Whitespace.Union(ClassOf(":"))
)
