// Copyright (c) 2025 BVK Chaitanya

package envfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Write updates variables in the env file at fpath, creating it if needed.
// Assignments for other variables are preserved in place and new variables
// are appended in sorted order. File is replaced atomically and is readable
// only by the owner.
func Write(fpath string, vars map[string]string) (status error) {
	for k, v := range vars {
		if !nameRe.MatchString(k) {
			return fmt.Errorf("invalid environment variable name %q: %w", k, os.ErrInvalid)
		}
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("value for variable %q has a line break: %w", k, os.ErrInvalid)
		}
	}

	data, err := os.ReadFile(fpath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not read env file: %w", err)
	}

	var lines []string
	done := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if name, _, ok := strings.Cut(strings.TrimSpace(line), "="); ok {
			if v, ok := vars[name]; ok {
				line = name + "=" + v
				done[name] = true
			}
		}
		lines = append(lines, line)
	}

	var names []string
	for k := range vars {
		if !done[k] {
			names = append(names, k)
		}
	}
	slices.Sort(names)
	for _, k := range names {
		lines = append(lines, k+"="+vars[k])
	}

	fp, err := os.CreateTemp(filepath.Dir(fpath), ".envfile*")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	defer func() {
		if status != nil {
			os.Remove(fp.Name())
		}
		fp.Close()
	}()

	if err := fp.Chmod(0600); err != nil {
		return err
	}
	if _, err := fp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		return fmt.Errorf("could not write env file: %w", err)
	}
	if err := fp.Sync(); err != nil {
		return err
	}
	if err := os.Rename(fp.Name(), fpath); err != nil {
		return fmt.Errorf("could not replace env file: %w", err)
	}
	return nil
}
