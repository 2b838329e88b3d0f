package sampling

import (
	"fmt"
	"strings"
)

// reservedPrefix is the namespace the engine uses for its own
// temp-table materializations (working point set, canopy table,
// Bernoulli samples). A caller-supplied relation name colliding with
// it would let a run's temp tables alias a real relation.
const reservedPrefix = "__kmeans_"

// QuoteIdentifier quotes a relation or column name for safe embedding
// in a generated identifier, doubling any embedded quote character.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ValidateRelationName rejects identifiers that would collide with the
// engine's own reserved temp-table namespace.
func ValidateRelationName(name string) error {
	if name == "" {
		return fmt.Errorf("sampling: relation name must not be empty")
	}
	if strings.HasPrefix(name, reservedPrefix) {
		return fmt.Errorf("sampling: relation name %q collides with reserved prefix %q", name, reservedPrefix)
	}
	return nil
}

// TempTableName derives a reserved temp-table name for a run-scoped
// artifact (e.g. the working point set or a Bernoulli sample) so it
// can never collide with a caller-supplied relation.
func TempTableName(runID, suffix string) string {
	return reservedPrefix + runID + "_" + suffix
}
