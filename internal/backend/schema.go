package backend

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

// Definitions in schema.cue.
const (
	defAtom          = "#Atom"
	defSpecRecord    = "#SpecRecord"
	defProofRecord   = "#ProofRecord"
	defBlueprintNode = "#BlueprintNode"
)

// schema validates raw tool records against the embedded CUE definitions.
type schema struct {
	mu   sync.Mutex
	ctx  *cue.Context
	defs map[string]cue.Value
}

var (
	schemaOnce   sync.Once
	sharedSchema *schema
	schemaErr    error
)

// loadSchema compiles schema.cue once per process.
func loadSchema() (*schema, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		root := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := root.Err(); err != nil {
			schemaErr = fmt.Errorf("compiling record schema: %w", err)
			return
		}

		defs := make(map[string]cue.Value)
		for _, name := range []string{defAtom, defSpecRecord, defProofRecord, defBlueprintNode} {
			v := root.LookupPath(cue.ParsePath(name))
			if !v.Exists() {
				schemaErr = fmt.Errorf("record schema has no %s definition", name)
				return
			}
			defs[name] = v
		}
		sharedSchema = &schema{ctx: ctx, defs: defs}
	})
	return sharedSchema, schemaErr
}

// check validates one JSON record against def.
func (s *schema) check(def string, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.defs[def]
	if !ok {
		return fmt.Errorf("unknown schema definition %s", def)
	}
	rec := s.ctx.CompileBytes(raw)
	if err := rec.Err(); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	if err := d.Unify(rec).Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}

// readRecords loads a JSON object of records keyed by identifier. A missing
// or unparseable file is an OutputError.
func readRecords(tool, path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &OutputError{Tool: tool, Path: path, Err: err}
	}
	var records map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&records); err != nil {
		return nil, &OutputError{Tool: tool, Path: path, Err: fmt.Errorf("parsing: %w", err)}
	}
	return records, nil
}
