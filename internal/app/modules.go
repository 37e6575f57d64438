package app

import (
	"io"

	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/modules/clip"
	"github.com/vk/insituflow/modules/contour"
	"github.com/vk/insituflow/modules/print"
	"github.com/vk/insituflow/modules/pseudocolor"
	"github.com/vk/insituflow/modules/relay"
	"github.com/vk/insituflow/modules/socketio"
	"github.com/vk/insituflow/modules/threshold"
)

// coreModules is the definitive list of all filter modules compiled into the
// insituflow binary. Sinks that write files resolve relative paths against
// outDir.
func coreModules(outDir string, outW io.Writer) []registry.Module {
	return []registry.Module{
		&threshold.Module{},
		&contour.Module{},
		&clip.Module{},
		&relay.Module{Dir: outDir},
		&socketio.Module{},
		&print.Module{Out: outW},
		&pseudocolor.Module{Dir: outDir},
	}
}
