package criteria

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAspect = errors.New("unknown aspect")
	ErrNoCriteria    = errors.New("no comparison criteria left")
)

// DefaultCheck is the criteria used when none are requested: compare file
// contents and directory structure, ignore names and dates.
const DefaultCheck = "data"

// Compound tags expand to other tags. The table is acyclic; expansion
// terminates on atomic aspect names.
var compounds = map[string][]string{
	"name":  {"dirname", "filename"},
	"count": {"dircount", "filecount"},
	"bytes": {"firstbytes", "lastbytes"},
	"tree":  {"name", "count"},
	"data":  {"size", "bytes", "count", "hash"},
	"full":  {"name", "data"},
	"fast":  {"size", "tree"},
	"epic":  {"date", "full"},
}

var aspectsByName = func() map[string]Aspect {
	m := make(map[string]Aspect, numAspects)
	for a := Aspect(0); a < numAspects; a++ {
		m[a.String()] = a
	}
	return m
}()

// Resolve expands the requested and ignored tag lists into the effective
// aspect set. Each element may itself be a comma separated list. An empty
// check list means DefaultCheck. Ignored compounds remove every atomic
// aspect they expand to, so "--ignore name" drops both dirname and
// filename even when they arrived via "full".
func Resolve(check, ignore []string) (Set, error) {
	if len(flatten(check)) == 0 {
		check = []string{DefaultCheck}
	}

	checked, err := Expand(check)
	if err != nil {
		return 0, err
	}
	ignored, err := Expand(ignore)
	if err != nil {
		return 0, err
	}

	set := checked &^ ignored
	if set.IsEmpty() {
		return 0, fmt.Errorf("%w: checking %s while ignoring %s", ErrNoCriteria, checked, ignored)
	}
	return set, nil
}

// Expand resolves a tag list to its atomic aspect set.
func Expand(tags []string) (Set, error) {
	var set Set
	for _, tag := range flatten(tags) {
		if err := expandInto(tag, &set); err != nil {
			return 0, err
		}
	}
	return set, nil
}

func expandInto(tag string, set *Set) error {
	if a, ok := aspectsByName[tag]; ok {
		*set = set.With(a)
		return nil
	}
	sub, ok := compounds[tag]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAspect, tag)
	}
	for _, s := range sub {
		if err := expandInto(s, set); err != nil {
			return err
		}
	}
	return nil
}

func flatten(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		for _, part := range strings.Split(t, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
