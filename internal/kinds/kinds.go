// Package kinds defines the reserved model kinds every build engine
// component agrees on, independent of any segment's own domain kinds.
package kinds

const (
	Mirror           = "fashion.core.mirror"
	GenerateTemplate = "fashion.core.generate.jinja2.spec"
	InputFile        = "fashion.core.input.file"
	OutputFile       = "fashion.core.output.file"
	Trace            = "fashion.core.trace"
	Context          = "fashion.core.context"
	Portfolio        = "fashion.prime.portfolio"
	Args             = "fashion.prime.args"

	Segment          = "fashion.prime.segment"
	ModuleDefinition = "fashion.prime.module.definition"
	ModuleConfig     = "fashion.prime.module.config"
)
