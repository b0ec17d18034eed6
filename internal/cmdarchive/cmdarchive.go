// Package cmdarchive wires the archive exporter into the command
// tree. The store-opening logic (a type:address string resolved
// through a store.Registry, with optional AES-GCM encryption unlocked
// by a keyfile) mirrors the way a long-lived blob-store server opens
// its backing store; here the store is a one-shot export destination
// instead of something served over the network.
package cmdarchive

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"errors"
	"flag"
	"fmt"
	"hash"

	"github.com/creachadair/badgerstore"
	"github.com/creachadair/boltstore"
	"github.com/creachadair/command"
	"github.com/creachadair/ffs/blob"
	"github.com/creachadair/ffs/blob/codecs/encrypted"
	"github.com/creachadair/ffs/blob/codecs/zlib"
	"github.com/creachadair/ffs/blob/encoded"
	"github.com/creachadair/ffs/blob/filestore"
	"github.com/creachadair/ffs/blob/memstore"
	"github.com/creachadair/ffs/blob/store"
	"github.com/creachadair/gcsstore"
	"github.com/creachadair/getpass"
	"github.com/creachadair/gitam/internal/archive"
	"github.com/creachadair/gitam/internal/objects"
	"github.com/creachadair/gitam/internal/repolocator"
	"github.com/creachadair/gitam/internal/vcs"
	"github.com/creachadair/keyfile"
	"github.com/creachadair/leveldbstore"
	"github.com/creachadair/pebblestore"
	"github.com/creachadair/sqlitestore"
	"golang.org/x/crypto/sha3"
)

var stores = store.Registry{
	"badger":  badgerstore.Opener,
	"bolt":    boltstore.Opener,
	"file":    filestore.Opener,
	"gcs":     gcsstore.Opener,
	"leveldb": leveldbstore.Opener,
	"memory":  memstore.Opener,
	"pebble":  pebblestore.Opener,
	"sqlite":  sqlitestore.Opener,
}

var (
	storeAddr string
	keyFile   string
	zlibLevel int
)

// Command exports every object reachable from one or more commits
// into a destination blob.Store.
var Command = &command.C{
	Name:  "archive",
	Usage: "--store <type:address> <ref> <ref>...",
	Help: `Export every object reachable from the given refs into a destination store.

A store spec is a storage type and address: type:address
The types understood are: badger, bolt, file, gcs, leveldb, memory, pebble, sqlite.

With --keyfile, the destination is written with AES-GCM encryption.`,

	SetFlags: func(env *command.Env, fs *flag.FlagSet) {
		fs.StringVar(&storeAddr, "store", "", "Destination store address (required)")
		fs.StringVar(&keyFile, "keyfile", "", "Encryption key file")
		fs.IntVar(&zlibLevel, "zlib", 0, "Enable ZLIB compression (0 means no compression)")
	},

	Run: runArchive,
}

func runArchive(env *command.Env, args []string) error {
	if storeAddr == "" {
		return errors.New("--store address is required")
	}
	if len(args) == 0 {
		return errors.New("at least one ref is required")
	}

	ctx := env.Context()
	repo, err := repolocator.Locate(ctx, "")
	if err != nil {
		return err
	}
	backend := &vcs.Exec{Dir: repo.Root}

	roots := make([]string, len(args))
	for i, ref := range args {
		hash, ok, err := backend.ResolveRef(ctx, ref)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", ref, err)
		} else if !ok {
			return fmt.Errorf("ref %q not found", ref)
		}
		roots[i] = hash
	}

	dst, _, err := openDestination(ctx)
	if err != nil {
		return fmt.Errorf("opening destination store: %w", err)
	}
	defer func() {
		if err := blob.CloseStore(ctx, dst); err != nil {
			fmt.Printf("Warning: closing store: %v\n", err)
		}
	}()

	src := objects.NewLooseStore(repo.GitDir)
	stats, err := archive.Export(ctx, src, dst, roots)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d objects (%d roots)\n", stats.Copied, len(roots))
	return nil
}

func openDestination(ctx context.Context) (blob.Store, func() hash.Hash, error) {
	bs, err := stores.Open(ctx, storeAddr)
	if err != nil {
		return nil, nil, err
	}
	if zlibLevel > 0 {
		bs = encoded.New(bs, zlib.NewCodec(zlib.Level(zlibLevel)))
	}
	if keyFile == "" {
		return bs, sha3.New256, nil
	}

	key, err := keyfile.LoadKey(keyFile, func() (string, error) {
		return getpass.Prompt("Passphrase: ")
	})
	if err != nil {
		return nil, nil, fmt.Errorf("loading encryption key: %w", err)
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(c)
	if err != nil {
		return nil, nil, fmt.Errorf("creating GCM instance: %w", err)
	}
	return encoded.New(bs, encrypted.New(gcm, nil)), func() hash.Hash {
		return hmac.New(sha3.New256, key)
	}, nil
}
