// Copyright (c) 2025 BVK Chaitanya

// Package envfile reads and writes simple NAME=VALUE environment files. Values
// are taken literally: no quoting, escaping, expansion or comments.
package envfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Variable is one assignment in an env file.
type Variable struct {
	Name  string
	Value string
	Line  int
}

// Parse reads all variable assignments. Blank lines are skipped.
func Parse(r io.Reader) ([]*Variable, error) {
	var vars []*Variable
	scanner := bufio.NewScanner(r)
	for i := 1; scanner.Scan(); i++ {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid/unrecognized variable assignment on line %d: %w", i, os.ErrInvalid)
		}
		if !nameRe.MatchString(name) {
			return nil, fmt.Errorf("invalid environment variable name %q on line %d: %w", name, i, os.ErrInvalid)
		}
		vars = append(vars, &Variable{Name: name, Value: value, Line: i})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}

func searchPaths(filename string, opts *options) ([]string, error) {
	if len(opts.searchDir) != 0 {
		return []string{filepath.Join(opts.searchDir, filename)}, nil
	}

	var fpaths []string
	if opts.searchCurrentDirectory {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		fpaths = append(fpaths, filepath.Join(cwd, filename))
		if opts.scanParentDirectories {
			last, dir := cwd, filepath.Dir(cwd)
			for dir != last {
				fpaths = append(fpaths, filepath.Join(dir, filename))
				last, dir = dir, filepath.Dir(dir)
			}
		}
	}
	if len(fpaths) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine current user's home directory: %w", err)
		}
		fpaths = append(fpaths, filepath.Join(home, filename))
	}
	return fpaths, nil
}

// UpdateEnv updates current process's environment with the values read from
// the env filename found in the user's home directory. The location of the env
// file search path and other behaviors can be changed by the input options.
// Only the first env file found is used. A missing env file is not an error.
func UpdateEnv(filename string, opts ...Option) error {
	if strings.ContainsRune(filename, os.PathSeparator) {
		return fmt.Errorf("file name contains path separator: %w", os.ErrInvalid)
	}
	fopts := new(options)
	for _, v := range opts {
		if err := v.apply(fopts); err != nil {
			return err
		}
	}

	fpaths, err := searchPaths(filename, fopts)
	if err != nil {
		return err
	}
	for _, fpath := range fpaths {
		data, err := os.ReadFile(fpath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		vars, err := Parse(strings.NewReader(string(data)))
		if err != nil {
			return fmt.Errorf("could not parse %q: %w", fpath, err)
		}
		for _, v := range vars {
			key := fopts.variableNamePrefix + v.Name
			if len(os.Getenv(key)) != 0 && !fopts.overwriteIfExists {
				continue
			}
			os.Setenv(key, v.Value)
		}
		return nil
	}
	return nil
}
