package config

import (
	"fmt"
	"regexp"
	"regexp/syntax"

	"github.com/hashicorp/go-multierror"
)

// maxRegexSourceLen bounds user-supplied pattern length: a
// pathological pattern that is merely long enough to make RE2's
// otherwise-linear compile step expensive is refused outright.
const maxRegexSourceLen = 256

// maxRegexProgramSize bounds the compiled automaton size, resisting
// patterns that are short in source but expand into an oversized
// program.
const maxRegexProgramSize = 4096

// Filters holds the three ordered lists of compiled patterns that
// drive process selection: ignore, avoid, prefer.
type Filters struct {
	Ignore []*regexp.Regexp
	Avoid []*regexp.Regexp
	Prefer []*regexp.Regexp
}

// compilePattern compiles a single user-supplied regex source under
// the length and program-size caps.
func compilePattern(src string) (*regexp.Regexp, error) {
	if len(src) > maxRegexSourceLen {
		return nil, fmt.Errorf("pattern %q exceeds maximum length of %d bytes", src, maxRegexSourceLen)
	}
	re, err := syntax.Parse(src, syntax.Perl)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", src, err)
	}
	prog, err := syntax.Compile(re.Simplify())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", src, err)
	}
	if len(prog.Inst) > maxRegexProgramSize {
		return nil, fmt.Errorf("pattern %q compiles to a program of %d instructions, exceeding the cap of %d", src, len(prog.Inst), maxRegexProgramSize)
	}
	compiled, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", src, err)
	}
	return compiled, nil
}

// compileAll compiles a slice of pattern sources, collecting every
// failure rather than stopping at the first.
func compileAll(sources []string) ([]*regexp.Regexp, error) {
	var (
		out []*regexp.Regexp
		errs *multierror.Error
	)
	for _, src := range sources {
		re, err := compilePattern(src)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		out = append(out, re)
	}
	return out, errs.ErrorOrNil()
}
