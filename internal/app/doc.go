// Package app wires the engines together from a single Config. Construction
// is the only place defaults are decided; the engines themselves take every
// dependency explicitly.
package app
