package scripting

import (
	"context"

	"github.com/wudi/pdffont/fonts"
	"github.com/wudi/pdffont/ir/raw"
)

// Engine represents a scripting engine (e.g., JavaScript).
type Engine interface {
	// Execute executes a script against the registered document.
	Execute(ctx context.Context, script string) (interface{}, error)

	// RegisterDOM registers the font DOM with the engine.
	RegisterDOM(dom FontDOM) error
}

// FontDOM exposes the font subsystem to scripts. Object references cross the
// boundary as [number, generation] pairs and width arrays as nested arrays
// whose leaves keep their integer/real kind.
type FontDOM interface {
	ListFonts(ctx context.Context, includeData bool) ([]fonts.Record, error)
	UsedFonts(ctx context.Context, first, last int) ([]raw.ObjectRef, error)
	RemoveFonts(refs []raw.ObjectRef) int
	MergeFonts(updates []fonts.WidthUpdate, replacements map[raw.ObjectRef]raw.ObjectRef) error
}

// ManagerDOM adapts a fonts.Manager to the FontDOM contract.
type ManagerDOM struct {
	Fonts *fonts.Manager
}

func (d *ManagerDOM) ListFonts(ctx context.Context, includeData bool) ([]fonts.Record, error) {
	return d.Fonts.List(ctx, includeData)
}

func (d *ManagerDOM) UsedFonts(ctx context.Context, first, last int) ([]raw.ObjectRef, error) {
	used, err := d.Fonts.UsedInPageRange(ctx, first, last)
	if err != nil {
		return nil, err
	}
	out := make([]raw.ObjectRef, 0, len(used))
	for ref := range used {
		out = append(out, ref)
	}
	return out, nil
}

func (d *ManagerDOM) RemoveFonts(refs []raw.ObjectRef) int {
	return d.Fonts.RemoveAll(refs)
}

func (d *ManagerDOM) MergeFonts(updates []fonts.WidthUpdate, replacements map[raw.ObjectRef]raw.ObjectRef) error {
	return d.Fonts.Merge(updates, replacements)
}
