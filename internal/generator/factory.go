package generator

import (
	"github.com/fashionforge/fashion/internal/registry"
	"github.com/fashionforge/fashion/internal/render"
	"github.com/fashionforge/fashion/internal/xformmodule"
)

// FactoryKey is the xformmodule.Descriptor.FactoryKey that selects this
// built-in module, used by the bundled fallback fashion.core warehouse
// instead of a loaded Go plugin file.
const FactoryKey = "fashion.core.generate.jinja2"

func init() {
	xformmodule.RegisterFactory(FactoryKey, initModule)
}

func initModule(cfg xformmodule.Config, reg *registry.Registry, requestedTags []string) error {
	if !xformmodule.MatchTags(requestedTags, cfg.Tags) {
		return nil
	}
	svc := New("1.0.0", cfg.Tags, render.NewTextTemplateRenderer())
	reg.AddXformObject(svc)
	return nil
}
