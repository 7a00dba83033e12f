// Package layout holds the compiled document model: a document is an ordered
// list of pages, each page a Frame of positioned visual items measured in
// points. Documents are immutable once produced by the compiler.
package layout
