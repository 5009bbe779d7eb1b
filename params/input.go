// Package params reads solver parameters from the DMRG key=value input format.
//
// Scalars are written Key=value.
// Vectors are written Key followed by a count and the entries, which may span several lines.
// Everything after a # is a comment.
package params

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMissing is returned when a key is absent from the input.
	ErrMissing = errors.New("missing key")
)

// Input is a parsed input file.
type Input struct {
	values map[string]string
	// tokens are the whitespace separated tokens that are not Key=value pairs, in order.
	tokens []string
}

// ReadFile parses the input file at path.
func ReadFile(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer f.Close()
	in, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return in, nil
}

// Read parses an input from r.
func Read(r io.Reader) (*Input, error) {
	in := &Input{values: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, tok := range strings.Fields(line) {
			key, value, ok := strings.Cut(tok, "=")
			if !ok {
				in.tokens = append(in.tokens, tok)
				continue
			}
			if key == "" {
				return nil, errors.Errorf("%q", tok)
			}
			in.values[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return in, nil
}

// Has reports whether key is present, either as a scalar or a vector.
func (in *Input) Has(key string) bool {
	if _, ok := in.values[key]; ok {
		return true
	}
	return in.vectorStart(key) >= 0
}

// Get returns the scalar value of key.
func (in *Input) Get(key string) (string, error) {
	v, ok := in.values[key]
	if !ok {
		return "", errors.Wrap(ErrMissing, key)
	}
	return v, nil
}

// Int returns the scalar value of key as an integer.
func (in *Input) Int(key string) (int, error) {
	s, err := in.Get(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, key)
	}
	return v, nil
}

func (in *Input) Uint64(key string) (uint64, error) {
	s, err := in.Get(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, key)
	}
	return v, nil
}

func (in *Input) Float(key string) (float64, error) {
	s, err := in.Get(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrap(err, key)
	}
	return v, nil
}

// Bool returns the scalar value of key as a boolean, accepting 0 and 1 as well.
func (in *Input) Bool(key string) (bool, error) {
	s, err := in.Get(key)
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.Wrap(err, key)
	}
	return v, nil
}

// Vector returns the entries of the vector key, whose count is given in units of per entries.
func (in *Input) Vector(key string, per int) ([]string, error) {
	i := in.vectorStart(key)
	if i < 0 {
		return nil, errors.Wrap(ErrMissing, key)
	}
	if i+1 >= len(in.tokens) {
		return nil, errors.Errorf("%s: no count", key)
	}
	n, err := strconv.Atoi(in.tokens[i+1])
	if err != nil || n < 0 {
		return nil, errors.Errorf("%s: bad count %q", key, in.tokens[i+1])
	}
	start, end := i+2, i+2+n*per
	if end > len(in.tokens) {
		return nil, errors.Errorf("%s: %d entries, expected %d", key, len(in.tokens)-start, n*per)
	}
	return in.tokens[start:end], nil
}

// Ints returns the vector key as integers.
func (in *Input) Ints(key string) ([]int, error) {
	ss, err := in.Vector(key, 1)
	if err != nil {
		return nil, err
	}
	return atois(key, ss)
}

func (in *Input) Floats(key string) ([]float64, error) {
	ss, err := in.Vector(key, 1)
	if err != nil {
		return nil, err
	}
	vs := make([]float64, 0, len(ss))
	for _, s := range ss {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrap(err, key)
		}
		vs = append(vs, v)
	}
	return vs, nil
}

func (in *Input) vectorStart(key string) int {
	for i, tok := range in.tokens {
		if tok == key {
			return i
		}
	}
	return -1
}

func atois(key string, ss []string) ([]int, error) {
	vs := make([]int, 0, len(ss))
	for _, s := range ss {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrap(err, key)
		}
		vs = append(vs, v)
	}
	return vs, nil
}
