// Package catalog stores named WAH bitmaps in a blob store and evaluates
// boolean queries over them.
//
// A catalog is a versioned set of entries. Each entry names one immutable,
// compressed bitmap blob. Changes (Put, Delete) are staged in memory and
// become visible to other processes on Commit, which writes a new JSON
// manifest and then repoints CURRENT at it:
//
//	CURRENT                           -> "manifests/00000000000000000003-<id>.json"
//	manifests/<version>-<id>.json     -> {"version":3,"entries":[...]}
//	bitmaps/<name>.<v>-<id>-<seq>.wah -> framed, compressed bitmap
//
// <id> identifies the writing Catalog instance, so concurrent writers never
// overwrite each other's blobs. Vacuum removes blobs left behind by writers
// that never committed.
//
// # Basic Usage
//
//	cat, err := catalog.Open(ctx, blobstore.NewLocalStore("./data"),
//	    catalog.WithCompressor(codec.Zstd{}),
//	    catalog.WithCacheSize(256<<20),
//	)
//	defer cat.Close()
//
//	_ = cat.Put(ctx, "active", active)
//	_ = cat.Put(ctx, "premium", premium)
//	_ = cat.Commit(ctx)
//
//	expr, _ := catalog.ParseExpr("active & !premium")
//	result, _ := cat.Query(ctx, expr)
//
// # Concurrency
//
// A Catalog is safe for concurrent use. Bitmaps returned by Get and Query
// are private clones the caller may mutate. Concurrent writers in separate
// processes are detected on stores implementing blobstore.Committer
// (MemoryStore, s3.DDBCommitStore); elsewhere the CURRENT pointer is checked
// before it is replaced, which narrows but does not close the race.
package catalog
