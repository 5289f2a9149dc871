// Package registry is the Code Registry: the set of loaded services and
// xform objects available to transforms during a build. Grounded on
// original_source/fashion/codeRegistry.py, restructured around
// Masterminds/semver/v3 the way the Python original used
// packaging.specifiers.SpecifierSet, and on the mutex-guarded map shape of
// the teacher's internal/plugin registry.
package registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/fashionforge/fashion/internal/ferrors"
)

// Service is anything registered under a name and semantic version and
// looked up by transforms at configure/initialise time.
type Service interface {
	Name() string
	Version() string
}

// Shutdownable services receive a Shutdown call when removed or when the
// registry is torn down.
type Shutdownable interface {
	Shutdown()
}

// XformObject is one loaded, versioned transform object bound to the
// segment configuration that produced it.
type XformObject interface {
	Name() string
	Version() string
}

// Registry holds services and xform objects by name and version.
type Registry struct {
	mu sync.RWMutex

	servicesByName     map[string][]serviceEntry
	xformObjectsByName map[string]XformObject
	cfgByName          map[string]any

	segmentConfig any
}

type serviceEntry struct {
	version *semver.Version
	svc     Service
}

// New constructs an empty Code Registry.
func New() *Registry {
	return &Registry{
		servicesByName:     make(map[string][]serviceEntry),
		xformObjectsByName: make(map[string]XformObject),
		cfgByName:          make(map[string]any),
	}
}

// SetObjectConfig sets the segment configuration attached to xform objects
// registered from here on — used to resolve template paths relative to the
// segment that defined the object.
func (r *Registry) SetObjectConfig(cfg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segmentConfig = cfg
}

// GetService looks up a named service, optionally constrained by a semver
// range (e.g. ">=1.2.0, <2.0.0"). With no range, the newest registered
// version wins.
func (r *Registry) GetService(name string, versionRange string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries, ok := r.servicesByName[name]
	if !ok || len(entries) == 0 {
		return nil, false
	}
	ranked := append([]serviceEntry(nil), entries...)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].version.GreaterThan(ranked[j].version)
	})
	if versionRange == "" {
		return ranked[0].svc, true
	}
	constraint, err := semver.NewConstraint(versionRange)
	if err != nil {
		slog.Error("invalid version range", "service", name, "range", versionRange, "error", err)
		return nil, false
	}
	for _, e := range ranked {
		if constraint.Check(e.version) {
			return e.svc, true
		}
	}
	return nil, false
}

// AddService registers a new service. A service with an already-registered
// exact version is rejected (DuplicateRegistration).
func (r *Registry) AddService(svc Service) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := semver.NewVersion(svc.Version())
	if err != nil {
		slog.Error("invalid service version", "service", svc.Name(), "version", svc.Version(), "error", err)
		return false
	}
	name := svc.Name()
	existing, ok := r.servicesByName[name]
	if !ok {
		r.servicesByName[name] = []serviceEntry{{version: v, svc: svc}}
		return true
	}
	for _, e := range existing {
		if e.version.Equal(v) {
			ce := ferrors.NewDuplicateRegistration("service already registered at this version").
				With("service", name).With("version", svc.Version()).Build()
			slog.Error(ce.Error())
			return false
		}
	}
	r.servicesByName[name] = append(existing, serviceEntry{version: v, svc: svc})
	return true
}

// RemoveService removes one specific version of a named service, calling
// Shutdown if it implements Shutdownable. Reports whether anything was
// removed.
func (r *Registry) RemoveService(name, version string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, ok := r.servicesByName[name]
	if !ok {
		return false
	}
	var remainder []serviceEntry
	removed := false
	for _, e := range entries {
		if e.version.Original() == version || e.version.String() == version {
			if sd, ok := e.svc.(Shutdownable); ok {
				sd.Shutdown()
			}
			removed = true
			continue
		}
		remainder = append(remainder, e)
	}
	r.servicesByName[name] = remainder
	return removed
}

// ShutdownAllServices calls Shutdown on every registered service.
func (r *Registry) ShutdownAllServices() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entries := range r.servicesByName {
		for _, e := range entries {
			if sd, ok := e.svc.(Shutdownable); ok {
				sd.Shutdown()
			}
		}
	}
}

// GetObjectConfig returns the segment configuration attached to the named
// xform object, if any.
func (r *Registry) GetObjectConfig(objectName string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.cfgByName[objectName]
	return cfg, ok
}

// GetXformObject looks up a named xform object.
func (r *Registry) GetXformObject(objectName string) (XformObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.xformObjectsByName[objectName]
	return obj, ok
}

// AddXformObject registers newObj. If an object of the same name already
// exists, newObj replaces it only if strictly newer — an equal or older
// version is rejected (DuplicateRegistration).
func (r *Registry) AddXformObject(newObj XformObject) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := newObj.Name()
	newVer, err := semver.NewVersion(newObj.Version())
	if err != nil {
		slog.Error("invalid xform object version", "object", name, "version", newObj.Version(), "error", err)
		return false
	}
	existing, ok := r.xformObjectsByName[name]
	if !ok {
		r.xformObjectsByName[name] = newObj
		r.cfgByName[name] = r.segmentConfig
		return true
	}
	existVer, err := semver.NewVersion(existing.Version())
	if err != nil {
		slog.Error("invalid existing xform object version", "object", name, "version", existing.Version(), "error", err)
		return false
	}
	if !newVer.GreaterThan(existVer) {
		ce := ferrors.NewDuplicateRegistration("xform object must be strictly newer to replace the existing one").
			With("object", name).With("version", newObj.Version()).With("existing", existing.Version()).Build()
		slog.Error(ce.Error())
		return false
	}
	r.xformObjectsByName[name] = newObj
	r.cfgByName[name] = r.segmentConfig
	return true
}

// RemoveXformObject removes the named xform object. Reports whether
// anything was removed.
func (r *Registry) RemoveXformObject(objectName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.xformObjectsByName[objectName]; !ok {
		return false
	}
	delete(r.xformObjectsByName, objectName)
	delete(r.cfgByName, objectName)
	return true
}

// AllXformObjects returns every currently registered xform object.
func (r *Registry) AllXformObjects() []XformObject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]XformObject, 0, len(r.xformObjectsByName))
	for _, obj := range r.xformObjectsByName {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
