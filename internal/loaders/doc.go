// Package loaders provides implementations of the Loader interface
// for the supported source file formats. Each loader knows how to
// extract text from a specific file extension.
//
// Loaders are registered with the Registry at startup.
package loaders
