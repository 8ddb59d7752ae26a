package worktree

import (
	"fmt"
	"math/rand"
	"time"
)

// defaultNamePalette holds the human-memorable color names used for worktree
// naming. Names are generated as "workspace-<color>".
var defaultNamePalette = []string{
	"amber", "apricot", "aqua", "azure", "beige", "bronze", "brown",
	"burgundy", "cerulean", "charcoal", "cherry", "chestnut", "cobalt",
	"copper", "coral", "cream", "crimson", "cyan", "denim", "ebony",
	"emerald", "fuchsia", "gold", "gray", "green", "indigo", "ivory",
	"jade", "khaki", "lavender", "lemon", "lilac", "magenta", "maroon",
	"mauve", "mint", "navy", "ochre", "olive", "orange", "orchid", "pearl",
	"periwinkle", "pink", "plum", "purple", "rose", "ruby", "rust",
	"saffron", "sage", "salmon", "sapphire", "scarlet", "sienna", "silver",
	"slate", "teal", "turquoise", "violet",
}

const (
	namePrefix      = "workspace-"
	maxNameAttempts = 100
)

// generateUniqueName picks a random palette name that is not already taken.
// taken must contain every name that would collide: existing worktree names
// and existing branch names. After maxNameAttempts random draws without an
// available name, a timestamp suffix guarantees termination.
func generateUniqueName(palette []string, taken map[string]bool) string {
	if len(palette) == 0 {
		palette = defaultNamePalette
	}
	for i := 0; i < maxNameAttempts; i++ {
		candidate := namePrefix + palette[rand.Intn(len(palette))]
		if !taken[candidate] {
			return candidate
		}
	}
	return fmt.Sprintf("%s%s-%d", namePrefix, palette[rand.Intn(len(palette))], time.Now().Unix())
}

// dedupeName appends a timestamp suffix when name collides with an entry in
// taken, used when the desired name is derived from a branch rather than
// drawn from the palette.
func dedupeName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	return fmt.Sprintf("%s-%d", name, time.Now().Unix())
}
