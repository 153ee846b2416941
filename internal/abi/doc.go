// Package abi provides internal utilities for the native call boundary.
//
// # Contents
//
//   - coerce.go: range-checked conversion of Go values to C scalar widths
//   - helpers.go: alignment and overflow-checked size arithmetic
//
// This package is internal to the descriptor and marshal packages.
package abi
