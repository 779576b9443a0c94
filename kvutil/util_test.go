// Copyright (c) 2025 BVK Chaitanya

package kvutil

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/bvk/vinbot/gobs"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
)

func TestRunRecords(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	for _, id := range []string{"a", "b", "c"} {
		rec := &gobs.RunRecord{RunID: id}
		if err := SetDB(ctx, db, path.Join("/runs", id), rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := SetDB(ctx, db, "/runsx", &gobs.RunRecord{RunID: "x"}); err != nil {
		t.Fatal(err)
	}

	rec, err := GetDB[gobs.RunRecord](ctx, db, "/runs/b")
	if err != nil {
		t.Fatal(err)
	}
	if rec.RunID != "b" {
		t.Fatalf("want run b, got %s", rec.RunID)
	}
	if _, err := GetDB[gobs.RunRecord](ctx, db, "/runs/z"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ErrNotExist, got %v", err)
	}

	var ids []string
	collect := func(_ context.Context, _ kv.Reader, _ string, v *gobs.RunRecord) error {
		ids = append(ids, v.RunID)
		if len(ids) == 2 {
			return ErrStop
		}
		return nil
	}
	begin, end := PathRange("/runs")
	if err := DescendDB(ctx, db, begin, end, collect); err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "c" || ids[1] != "b" {
		t.Fatalf("want [c b], got %v", ids)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := kvmemdb.New()
	if err := SetDB(ctx, src, "/runs/a", &gobs.RunRecord{RunID: "a"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	export := func(ctx context.Context, r kv.Reader) error {
		n, err := Export(ctx, r, &buf)
		if err == nil && n != 1 {
			t.Errorf("want 1 exported item, got %d", n)
		}
		return err
	}
	if err := kv.WithReader(ctx, src, export); err != nil {
		t.Fatal(err)
	}

	dst := kvmemdb.New()
	restore := func(ctx context.Context, rw kv.ReadWriter) error {
		_, err := Import(ctx, &buf, rw)
		return err
	}
	if err := kv.WithReadWriter(ctx, dst, restore); err != nil {
		t.Fatal(err)
	}
	rec, err := GetDB[gobs.RunRecord](ctx, dst, "/runs/a")
	if err != nil {
		t.Fatal(err)
	}
	if rec.RunID != "a" {
		t.Fatalf("want run a, got %s", rec.RunID)
	}
}

func TestGetInto(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	if err := SetDB(ctx, db, "/runs/x", &gobs.RunRecord{RunID: "x", Attempts: 4}); err != nil {
		t.Fatal(err)
	}
	v, err := gobs.NewByTypename("RunRecord")
	if err != nil {
		t.Fatal(err)
	}
	get := func(ctx context.Context, r kv.Reader) error {
		return GetInto(ctx, r, "/runs/x", v)
	}
	if err := kv.WithReader(ctx, db, get); err != nil {
		t.Fatal(err)
	}
	if rec := v.(*gobs.RunRecord); rec.RunID != "x" || rec.Attempts != 4 {
		t.Fatalf("want run x with 4 attempts, got %+v", rec)
	}
}

func TestImportRejectsBadKeys(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&gobs.KeyValue{Key: "runs/../x", Value: []byte("v")}); err != nil {
		t.Fatal(err)
	}
	restore := func(ctx context.Context, rw kv.ReadWriter) error {
		_, err := Import(ctx, &buf, rw)
		return err
	}
	if err := kv.WithReadWriter(ctx, kvmemdb.New(), restore); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid for a relative key, got %v", err)
	}
}

func TestBackupDB(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()
	for _, id := range []string{"a", "b", "c"} {
		if err := SetDB(ctx, db, "/runs/"+id, &gobs.RunRecord{RunID: id}); err != nil {
			t.Fatal(err)
		}
	}

	fpath := filepath.Join(t.TempDir(), "backup.gob")
	n, err := BackupDB(ctx, db, fpath)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("want 3 items, got %d", n)
	}

	fp, err := os.Open(fpath)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()

	dst := kvmemdb.New()
	if err := SetDB(ctx, dst, "/stale", &gobs.RunRecord{RunID: "stale"}); err != nil {
		t.Fatal(err)
	}
	restore := func(ctx context.Context, rw kv.ReadWriter) error {
		if err := DeleteAll(ctx, rw); err != nil {
			return err
		}
		_, err := Import(ctx, fp, rw)
		return err
	}
	if err := kv.WithReadWriter(ctx, dst, restore); err != nil {
		t.Fatal(err)
	}
	if _, err := GetDB[gobs.RunRecord](ctx, dst, "/stale"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want stale key removed, got %v", err)
	}
	if rec, err := GetDB[gobs.RunRecord](ctx, dst, "/runs/b"); err != nil || rec.RunID != "b" {
		t.Fatalf("want run b restored, got %v, %v", rec, err)
	}
}
