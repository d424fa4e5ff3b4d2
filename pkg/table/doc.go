// Package table holds the tabular utilities used around a field trial:
// joining evaluation files, cleaning column names and values, deriving
// columns, handling missing measurements and scoring quality traits.
//
// Tables are gota DataFrames whose columns are strings. A missing value
// (NA) is a NaN element in the frame and an empty string at the edges of
// this package: [Records] writes NA as "", and every function that takes
// a value treats "" as NA. Numeric work parses cells on demand, so a
// column keeps whatever text the source file had until a caller asks for
// a typed conversion with [ProcessValues].
//
// Functions never modify their input frame; each returns a new one.
package table
