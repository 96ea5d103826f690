// Package indexer drives the batch pipeline that turns a source tree into
// the persisted index.
//
// A run has three phases. First, files are processed in parallel: hash
// check, parse, chunk, embed, persist, with every file (changed or not)
// registering its declared symbols into the symbol table builder. Second,
// the table freezes and deleted files are swept. Third, captured
// references resolve against the frozen table into dependency edges, again
// parallel per file.
//
// Per-file failures never abort a run; they accumulate in the report. One
// run at a time per Indexer, enforced by a non-blocking lock.
package indexer
