// Package normalisers provides implementations of the Normaliser interface.
// The book normaliser turns a parsed FB2, XML or HTML tree into a titled
// book with ordered sections.
package normalisers
