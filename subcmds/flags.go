// Copyright (c) 2025 BVK Chaitanya

package subcmds

import "strconv"

// optionalBool is a boolean flag that remembers if it was set.
type optionalBool struct {
	set   bool
	value bool
}

func (v *optionalBool) String() string {
	if v == nil || !v.set {
		return ""
	}
	return strconv.FormatBool(v.value)
}

func (v *optionalBool) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	v.set, v.value = true, b
	return nil
}

func (v *optionalBool) IsBoolFlag() bool {
	return true
}

func (v *optionalBool) ptr() *bool {
	if !v.set {
		return nil
	}
	b := v.value
	return &b
}
