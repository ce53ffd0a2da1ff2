package command

import (
	"fmt"

	"github.com/bdobrica/Tasuki/internal/tasuki/catalog"
)

// chainFilledParams are required-looking parameters that are always treated
// as present: the chain resolver and context updater fill them from session
// state, so their absence at validation time is not a user error.
var chainFilledParams = map[string]bool{
	"workspaceSlug": true,
	"projectSlug":   true,
}

// ValidationResult reports whether a command may proceed to execution.
type ValidationResult struct {
	Valid bool
	// Missing lists required parameters that are absent or blank, for
	// caller-facing clarification messages. Chain-filled parameters never
	// appear here.
	Missing []string
	// Reason is set instead of Missing when the command name itself is not
	// in the catalog.
	Reason string
}

// ValidateParams checks a recovered command against the catalog: the name
// must be known and every required parameter must be present and non-blank,
// except workspaceSlug and projectSlug which are resolved later from session
// context.
func ValidateParams(cat *catalog.Catalog, cmd ActionCommand) ValidationResult {
	spec, ok := cat.Lookup(cmd.Name)
	if !ok {
		return ValidationResult{Reason: fmt.Sprintf("unknown command %q", cmd.Name)}
	}

	var missing []string
	for _, name := range spec.Required() {
		if chainFilledParams[name] {
			continue
		}
		if !paramPresent(cmd.Parameters[name]) {
			missing = append(missing, name)
		}
	}

	return ValidationResult{Valid: len(missing) == 0, Missing: missing}
}
