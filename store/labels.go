package store

import "strings"

// Reserved command labels. Extensions use them to tell programmatic state
// changes apart from user commands.
const (
	LabelUnspecified = "Unspecified"
	LabelUndo        = "@Undo"
	LabelRedo        = "@Redo"
	LabelRestore     = "@Restore"
	LabelRollback    = "@Rollback"
	LabelLoad        = "@Load"
	LabelDevtools    = "@Devtools"
)

// IsReserved reports whether label is one of the '@'-prefixed labels the
// packages in this module issue on their own behalf.
func IsReserved(label string) bool {
	return strings.HasPrefix(label, "@")
}

func normalizeLabel(label string) string {
	if label == "" {
		return LabelUnspecified
	}
	return label
}
