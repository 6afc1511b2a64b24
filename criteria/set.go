package criteria

import "strings"

// Set is a bit set of atomic aspects.
type Set uint16

func (s Set) Has(a Aspect) bool {
	return s&(1<<a) != 0
}

func (s Set) With(a Aspect) Set {
	return s | 1<<a
}

func (s Set) Without(a Aspect) Set {
	return s &^ (1 << a)
}

func (s Set) IsEmpty() bool {
	return s == 0
}

// Aspects returns the members in ascending cost order.
func (s Set) Aspects() []Aspect {
	out := make([]Aspect, 0, numAspects)
	for a := Aspect(0); a < numAspects; a++ {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// Files returns the subset applicable to regular files.
func (s Set) Files() Set {
	var out Set
	for _, a := range s.Aspects() {
		if a.AppliesToFiles() {
			out = out.With(a)
		}
	}
	return out
}

// Dirs returns the subset applicable to directories.
func (s Set) Dirs() Set {
	var out Set
	for _, a := range s.Aspects() {
		if a.AppliesToDirs() {
			out = out.With(a)
		}
	}
	return out
}

func (s Set) String() string {
	if s.IsEmpty() {
		return "none"
	}
	names := make([]string, 0, numAspects)
	for _, a := range s.Aspects() {
		names = append(names, a.String())
	}
	return strings.Join(names, ",")
}
