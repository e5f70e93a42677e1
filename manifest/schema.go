package manifest

import (
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schema constrains the decoded manifest. Field names follow the json tags,
// which is how cue encodes Go structs.
const schema = `
#Manifest: {
	engine: {
		"max-steps": int & >=0
		timeout:     string
		trace:       bool
	}
	server: {
		addr:               string & =~"^(\\[[^\\]]+\\]|[^:]*):[0-9]+$"
		workers:            int & >=1 & <=256
		queue:              int & >=0
		"max-source-bytes": int & >=1
	}
	log: {
		verbosity: int & >=-4 & <=5
		path:      string
	}
}
`

// Validate checks the manifest against the CUE schema and parses the
// timeout.
func (m *Manifest) Validate() error {
	ctx := cuecontext.New()
	s := ctx.CompileString(schema)
	if err := s.Err(); err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}
	def := s.LookupPath(cue.ParsePath("#Manifest"))

	v := ctx.Encode(m)
	if err := v.Err(); err != nil {
		return err
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return err
	}

	if m.Engine.Timeout != "" {
		d, err := time.ParseDuration(m.Engine.Timeout)
		if err != nil {
			return fmt.Errorf("engine.timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("engine.timeout: negative duration %s", d)
		}
	}
	return nil
}
