// Copyright (c) 2023 BVK Chaitanya

package cmdutil

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/bvk/vinbot/kvutil"
	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
)

// DBFlags selects one of three databases: an in-memory copy of a backup file,
// a local badger directory (server must not be running) or the remote
// database exported by the server.
type DBFlags struct {
	ClientFlags

	dbURLPath string

	dataDir string

	fromBackup string

	backupBefore string
	backupAfter  string
}

func (f *DBFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.dataDir, "data-dir", "", "Path to the database directory")

	fset.StringVar(&f.fromBackup, "from-backup", "", "Path to a database backup file")

	f.ClientFlags.SetFlags(fset)
	fset.StringVar(&f.dbURLPath, "db-url-path", "/db", "path to db api handler")

	fset.StringVar(&f.backupBefore, "backup-before", "", "Path to a file to receive db backup before cmd is run")
	fset.StringVar(&f.backupAfter, "backup-after", "", "Path to a file to receive db backup after cmd is run")
}

// IsRemoteDatabase returns true if target database is a remote database over
// http.
func (f *DBFlags) IsRemoteDatabase() bool {
	return f.fromBackup == "" && f.dataDir == ""
}

// IsGoodKey returns true for absolute, clean database keys.
func IsGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}

func (f *DBFlags) dbCloser(db kv.Database, close func() error) func() {
	return func() {
		if len(f.backupAfter) != 0 {
			if _, err := kvutil.BackupDB(context.Background(), db, f.backupAfter); err != nil {
				slog.Warn("could not take db backup after it is used (ignored)", "err", err)
			}
		}
		if close != nil {
			if err := close(); err != nil {
				slog.Warn("could not close the database (ignored)", "err", err)
			}
		}
	}
}

func (f *DBFlags) GetDatabase(ctx context.Context) (db kv.Database, closer func(), status error) {
	if len(f.fromBackup) != 0 && len(f.dataDir) != 0 {
		return nil, nil, fmt.Errorf("flags -from-backup and -data-dir are mutually exclusive: %w", os.ErrInvalid)
	}

	defer func() {
		if status == nil && len(f.backupBefore) != 0 {
			if _, err := kvutil.BackupDB(ctx, db, f.backupBefore); err != nil {
				closer()
				db, closer, status = nil, nil, fmt.Errorf("could not take a db backup before it is used: %w", err)
			}
		}
	}()

	if len(f.fromBackup) != 0 {
		fp, err := os.Open(f.fromBackup)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open file %q: %w", f.fromBackup, err)
		}
		defer fp.Close()

		mdb := kvmemdb.New()
		restore := func(ctx context.Context, rw kv.ReadWriter) error {
			_, err := kvutil.Import(ctx, bufio.NewReader(fp), rw)
			return err
		}
		if err := kv.WithReadWriter(ctx, mdb, restore); err != nil {
			return nil, nil, fmt.Errorf("could not restore in-memory db from backup: %w", err)
		}
		return mdb, f.dbCloser(mdb, nil), nil
	}

	if len(f.dataDir) != 0 {
		bdb, err := badger.Open(badger.DefaultOptions(f.dataDir).WithLogger(nil))
		if err != nil {
			return nil, nil, fmt.Errorf("could not open the database: %w", err)
		}
		kdb := kvbadger.New(bdb, IsGoodKey)
		return kdb, f.dbCloser(kdb, bdb.Close), nil
	}

	addrURL := f.ClientFlags.AddressURL()
	addrURL.Path = path.Join(addrURL.Path, f.dbURLPath)
	hdb := kvhttp.New(addrURL, f.ClientFlags.HttpClient())
	return hdb, f.dbCloser(hdb, nil), nil
}
