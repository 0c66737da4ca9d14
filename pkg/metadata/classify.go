package metadata

import "github.com/your-org/evidenceflow/pkg/forensic"

// sensitiveKeys is the fixed taxonomy of attribute keys likely to reveal
// personal identity. Classification is a pure function of the key, matched
// by exact identity; values are never inspected. Extend the list, never
// branch on content.
var sensitiveKeys = map[string]struct{}{
	"Author":           {},
	"Creator":          {},
	"Producer":         {},
	"Last Modified By": {},
	"Owner":            {},
}

// Classify tags an attribute key against the sensitive-key taxonomy.
func Classify(key string) forensic.Classification {
	if _, ok := sensitiveKeys[key]; ok {
		return forensic.ClassSensitive
	}
	return forensic.ClassGeneral
}
