package merge

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/eak1mov/go-tilemerge/tile"
	"github.com/google/uuid"
)

const (
	maxNameLength = 255
	maxPathLength = 260
)

// OutputName returns the file name of a fused tile in the output tree.
func OutputName(id tile.ID) string {
	return fmt.Sprintf("%d.jpg", id.X)
}

// intermediateName derives a unique scratch file name from the source tile name,
// truncating the base so that the full path stays within maxPathLength.
func intermediateName(dir, source string) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	suffix := "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + ".jpg"

	limit := min(maxNameLength, maxPathLength-len(dir)-1) - len(suffix)
	if limit < 1 {
		limit = 1
	}
	if len(base) > limit {
		base = base[:limit]
	}
	return base + suffix
}
