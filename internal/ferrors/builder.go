package ferrors

// Context carries structured diagnostic fields for a ClassifiedError.
type Context map[string]any

func (c Context) Set(key string, value any) Context {
	if c == nil {
		c = make(Context)
	}
	c[key] = value
	return c
}

func (c Context) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c[key]
	return v, ok
}

// Builder provides a fluent API for constructing ClassifiedError values.
type Builder struct {
	category Category
	message  string
	cause    error
	context  Context
}

// New starts a classified error in the given category.
func New(category Category, message string) *Builder {
	return &Builder{category: category, message: message, context: make(Context)}
}

// Wrap starts a classified error that wraps an existing error.
func Wrap(err error, category Category, message string) *Builder {
	return &Builder{category: category, message: message, cause: err, context: make(Context)}
}

// With attaches a context key/value pair.
func (b *Builder) With(key string, value any) *Builder {
	b.context = b.context.Set(key, value)
	return b
}

// Build finalizes the ClassifiedError.
func (b *Builder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors, one per taxonomy row (spec §7).

func NewMissingProject(message string) *Builder           { return New(MissingProject, message) }
func NewSegmentDescriptorInvalid(message string) *Builder { return New(SegmentDescriptorInvalid, message) }
func NewModuleLoadFailure(message string) *Builder        { return New(ModuleLoadFailure, message) }
func NewDuplicateRegistration(message string) *Builder     { return New(DuplicateRegistration, message) }
func NewUndeclaredAccess(message string) *Builder          { return New(UndeclaredAccess, message) }
func NewSchemaValidation(message string) *Builder          { return New(SchemaValidation, message) }
func NewCycleDetected(message string) *Builder              { return New(CycleDetected, message) }
func NewTransformFailure(err error, message string) *Builder { return Wrap(err, TransformFailure, message) }
func NewTargetModified(message string) *Builder              { return New(TargetModified, message) }
func NewTemplateNotFound(message string) *Builder            { return New(TemplateNotFound, message) }
