package cpu

// Tracer observes the machine between steps. A non-nil error stops the run
// and is returned from Step unchanged.
type Tracer interface {
	Trace(c *CPU) error
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(c *CPU) error

func (f TracerFunc) Trace(c *CPU) error { return f(c) }

// Tracers calls each tracer in order, stopping at the first error.
type Tracers []Tracer

func (ts Tracers) Trace(c *CPU) error {
	for _, t := range ts {
		if err := t.Trace(c); err != nil {
			return err
		}
	}
	return nil
}
