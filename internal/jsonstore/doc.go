// Package jsonstore implements the JSON document backend.
//
// The whole catalog lives in one JSON file and is loaded into memory on
// Open. Get and List read memory only. Every mutation serializes the full
// catalog to a temporary file in the same directory, syncs it and renames
// it over the target, and only then updates memory, so a failed write
// leaves both unchanged and readers never observe a half-written file.
//
// Known limitation: the store assumes a single writer. Two processes that
// open the same path and both mutate it will overwrite each other's
// changes; the last rename wins.
package jsonstore
