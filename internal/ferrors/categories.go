// Package ferrors provides classified errors for the build engine's error
// handling design: each error carries a Category identifying which row of the
// taxonomy it belongs to and a Policy describing how the Runway should react.
package ferrors

// Category identifies one row of the error taxonomy.
type Category string

const (
	MissingProject           Category = "missing_project"
	SegmentDescriptorInvalid Category = "segment_descriptor_invalid"
	ModuleLoadFailure        Category = "module_load_failure"
	DuplicateRegistration    Category = "duplicate_registration"
	UndeclaredAccess         Category = "undeclared_access"
	SchemaValidation         Category = "schema_validation"
	CycleDetected            Category = "cycle_detected"
	TransformFailure         Category = "transform_failure"
	TargetModified           Category = "target_modified"
	TemplateNotFound         Category = "template_not_found"
)

// Policy describes what the Runway does when an error of a given category
// surfaces.
type Policy string

const (
	PolicyFatal             Policy = "fatal"              // abort the whole run
	PolicySkipAndLog        Policy = "skip_and_log"        // skip the unit, log, continue
	PolicyMarkUnloadedAndGo Policy = "mark_unloaded"       // mark unloaded, continue
	PolicyRejectAndLog      Policy = "reject_and_log"      // reject the newcomer, log
	PolicyMarkInvalidAndGo  Policy = "mark_invalid"        // mark plan invalid, continue
	PolicyAbortUnitAndLog   Policy = "abort_unit_and_log"  // abort this unit only
	PolicySkipAndWarn       Policy = "skip_and_warn"       // skip write, warn
)

var policyByCategory = map[Category]Policy{
	MissingProject:           PolicyFatal,
	SegmentDescriptorInvalid: PolicySkipAndLog,
	ModuleLoadFailure:        PolicyMarkUnloadedAndGo,
	DuplicateRegistration:    PolicyRejectAndLog,
	UndeclaredAccess:         PolicySkipAndLog,
	SchemaValidation:         PolicySkipAndLog,
	CycleDetected:            PolicyMarkInvalidAndGo,
	TransformFailure:         PolicyAbortUnitAndLog,
	TargetModified:           PolicySkipAndWarn,
	TemplateNotFound:         PolicySkipAndLog,
}

// PolicyFor returns the taxonomy's policy for a category.
func PolicyFor(c Category) Policy {
	if p, ok := policyByCategory[c]; ok {
		return p
	}
	return PolicyFatal
}

// IsFatal reports whether the category's policy aborts the whole run.
func (c Category) IsFatal() bool {
	return PolicyFor(c) == PolicyFatal
}
