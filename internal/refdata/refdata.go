// Package refdata loads the country and state reference dataset.
//
// The dataset is written in CUE and unified with an embedded schema, so a
// malformed ISO code or a state without a name is reported with its source
// position before anything reaches the database. Default returns the dataset
// compiled into the binary.
package refdata

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSrc string

//go:embed default.cue
var defaultSrc string

// State is a state or province of a country.
type State struct {
	ID           int64  `json:"id"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
}

// Country is a country and its states.
type Country struct {
	ID      int64   `json:"id"`
	ISOCode string  `json:"iso_code"`
	Name    string  `json:"name"`
	States  []State `json:"states"`
}

// Dataset is the full reference dataset.
type Dataset struct {
	Countries []Country `json:"countries"`
}

// Error codes for LoadError.
const (
	ErrCodeNotFound    = "E201"
	ErrCodeNoFiles     = "E202"
	ErrCodeLoadFailed  = "E203"
	ErrCodeInvalid     = "E204"
	ErrCodeDuplicateID = "E205"
)

// LoadError describes a dataset that could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Default returns the embedded dataset.
func Default() (*Dataset, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(defaultSrc, cue.Filename("default.cue"))
	return decode(ctx, v)
}

// Load reads every .cue file in dir as one dataset.
func Load(dir string) (*Dataset, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("refdata directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}
	rel := make([]string, len(files))
	for i, f := range files {
		rel[i] = "./" + filepath.Base(f)
	}

	instances := load.Instances(rel, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	if err := instances[0].Err; err != nil {
		return nil, cueError(ErrCodeLoadFailed, err)
	}

	ctx := cuecontext.New()
	return decode(ctx, ctx.BuildInstance(instances[0]))
}

func decode(ctx *cue.Context, v cue.Value) (*Dataset, error) {
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeLoadFailed, err)
	}

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, cueError(ErrCodeLoadFailed, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Dataset")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeInvalid, err)
	}

	var ds Dataset
	if err := unified.Decode(&ds); err != nil {
		return nil, cueError(ErrCodeInvalid, err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks cross-record constraints the schema cannot express:
// unique country ids and ISO codes, unique state ids, and unique state
// abbreviations within a country.
func (d *Dataset) Validate() error {
	countryIDs := make(map[int64]bool)
	isoCodes := make(map[string]bool)
	stateIDs := make(map[int64]bool)

	for _, c := range d.Countries {
		if countryIDs[c.ID] {
			return &LoadError{Code: ErrCodeDuplicateID, Message: fmt.Sprintf("duplicate country id %d", c.ID)}
		}
		countryIDs[c.ID] = true
		if isoCodes[c.ISOCode] {
			return &LoadError{Code: ErrCodeDuplicateID, Message: fmt.Sprintf("duplicate iso_code %s", c.ISOCode)}
		}
		isoCodes[c.ISOCode] = true

		abbrs := make(map[string]bool)
		for _, s := range c.States {
			if stateIDs[s.ID] {
				return &LoadError{Code: ErrCodeDuplicateID, Message: fmt.Sprintf("duplicate state id %d", s.ID)}
			}
			stateIDs[s.ID] = true
			if abbrs[s.Abbreviation] {
				return &LoadError{Code: ErrCodeDuplicateID, Message: fmt.Sprintf("duplicate state %s in %s", s.Abbreviation, c.ISOCode)}
			}
			abbrs[s.Abbreviation] = true
		}
	}
	return nil
}

// StateCount returns the total number of states across all countries.
func (d *Dataset) StateCount() int {
	n := 0
	for _, c := range d.Countries {
		n += len(c.States)
	}
	return n
}

func cueError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: err.Error()}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		le.Pos = errs[0].Position()
		le.Message = errs[0].Error()
	}
	return le
}
