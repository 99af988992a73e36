// Package types defines the Book entity, the Store and Backend interfaces,
// the list Filter, and the error kinds shared by every booklib backend.
package types
