// Copyright (c) 2023 BVK Chaitanya

package kvutil

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/bvkgo/kv"
)

func decode[T any](key string, r io.Reader) (*T, error) {
	gv := new(T)
	if err := gob.NewDecoder(r).Decode(gv); err != nil {
		return nil, fmt.Errorf("could not gob-decode value at key %q: %w", key, err)
	}
	return gv, nil
}

func Get[T any](ctx context.Context, g kv.Getter, key string) (*T, error) {
	value, err := g.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("could not Get from %q: %w", key, err)
	}
	return decode[T](key, value)
}

// GetInto decodes the value at key into a caller allocated pointer of a
// dynamic type.
func GetInto(ctx context.Context, g kv.Getter, key string, ptr any) error {
	value, err := g.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("could not Get from %q: %w", key, err)
	}
	if err := gob.NewDecoder(value).Decode(ptr); err != nil {
		return fmt.Errorf("could not gob-decode value at key %q: %w", key, err)
	}
	return nil
}

func Set[T any](ctx context.Context, s kv.Setter, key string, value *T) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return fmt.Errorf("could not gob-encode value for key %q: %w", key, err)
	}
	return s.Set(ctx, key, &buf)
}

func GetDB[T any](ctx context.Context, db kv.Database, key string) (value *T, err error) {
	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		value, err = Get[T](ctx, r, key)
		return err
	})
	return value, err
}

func SetDB[T any](ctx context.Context, db kv.Database, key string, value *T) error {
	return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		return Set[T](ctx, rw, key, value)
	})
}

// IterFunc is invoked for every item in a range. Returning a non-nil error
// stops the iteration; ErrStop stops it without an error.
type IterFunc[T any] func(context.Context, kv.Reader, string, *T) error

var ErrStop = errors.New("stop iteration")

func iterate[T any](ctx context.Context, r kv.Reader, it kv.Iterator, fn IterFunc[T]) error {
	defer kv.Close(it)

	for k, v, err := it.Fetch(ctx, false); err == nil; k, v, err = it.Fetch(ctx, true) {
		gv, err := decode[T](k, v)
		if err != nil {
			return err
		}
		if err := fn(ctx, r, k, gv); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	if _, _, err := it.Fetch(ctx, false); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("could not complete iteration: %w", err)
	}
	return nil
}

func Ascend[T any](ctx context.Context, r kv.Reader, begin, end string, fn IterFunc[T]) error {
	it, err := r.Ascend(ctx, begin, end)
	if err != nil {
		return err
	}
	return iterate(ctx, r, it, fn)
}

func Descend[T any](ctx context.Context, r kv.Reader, begin, end string, fn IterFunc[T]) error {
	it, err := r.Descend(ctx, begin, end)
	if err != nil {
		return err
	}
	return iterate(ctx, r, it, fn)
}

func AscendDB[T any](ctx context.Context, db kv.Database, begin, end string, fn IterFunc[T]) error {
	return kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		return Ascend[T](ctx, r, begin, end, fn)
	})
}

func DescendDB[T any](ctx context.Context, db kv.Database, begin, end string, fn IterFunc[T]) error {
	return kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		return Descend[T](ctx, r, begin, end, fn)
	})
}

// PathRange returns the key range covering all keys under the directory.
func PathRange(dir string) (begin string, end string) {
	dir = path.Clean(dir)
	if dir == "/" {
		return "", ""
	}
	return dir + "/", dir + string('/'+1)
}
