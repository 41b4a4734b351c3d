package manifest

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

const schemaSource = `
#Row: {
	tag:            string & =~"^[^,\"]+$"
	category?:      string
	"dev-comment"?: string
}

#Manifest: {
	tags?: {
		"import-from-config"?:  bool
		"warn-on-invalid"?:     bool
		"fast-replication"?:    bool
		"first-bit-segment"?:   int & >=1 & <=16
		"container-size-bits"?: int & >=1 & <=32
		tables?: [...string]
		"commonly-replicated"?: [...string]
		"developer-dir"?: string
		list?: [...#Row]
	}
	redirects?: [...{
		old: string & !=""
		new: string
	}]
}
`

var (
	// cue values are not safe for concurrent evaluation.
	validateMu sync.Mutex

	schemaOnce sync.Once
	cueCtx     *cue.Context
	schema     cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		cueCtx = cuecontext.New()
		v := cueCtx.CompileString(schemaSource, cue.Filename("gametags.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compiling manifest schema: %w", err)
			return
		}
		schema = v.LookupPath(cue.ParsePath("#Manifest"))
		schemaErr = schema.Err()
	})
	return cueCtx, schema, schemaErr
}

// Validate checks decoded manifest data against the schema. Unknown keys,
// wrong types and out-of-range widths are rejected.
func Validate(raw map[string]any) error {
	validateMu.Lock()
	defer validateMu.Unlock()

	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}
	v := ctx.Encode(raw)
	if err := v.Err(); err != nil {
		return err
	}
	return def.Unify(v).Validate(cue.Concrete(true))
}
