package suite

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed manifest.cue
var manifestSchema string

// ValidateManifest checks m against the embedded CUE schema. It catches
// out-of-range addresses, conflicting budgets and unknown protocols before
// any test case is built.
func ValidateManifest(m *Manifest) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(manifestSchema, cue.Filename("manifest.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("failed to compile manifest schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))
	if !def.Exists() {
		return fmt.Errorf("manifest schema has no #Manifest definition")
	}

	doc := ctx.Encode(m)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("manifest does not match schema: %w", err)
	}
	return nil
}
