// Package textutil holds the pure text helpers of the normalization
// pipeline: OCR cleanup and trigram similarity. No package here touches
// the database or the network.
package textutil

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	decimalCommaRe = regexp.MustCompile(`(\d),(\d)`)
)

// noiseCutset are edge characters that OCR tends to attach to product
// names but are never part of one. '%' is deliberately absent: fat
// percentages like "3.2%" are meaningful.
const noiseCutset = "*#~|_=<>\"'`^,:;!?/\\()[]{}+-. \t\r\n"

// Clean normalizes a raw OCR string: collapses repeated whitespace,
// converts decimal commas between digits to dots and strips leading and
// trailing noise characters. Empty input comes back unchanged.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = decimalCommaRe.ReplaceAllString(s, "$1.$2")
	s = strings.Trim(s, noiseCutset)
	return s
}

// Normalize returns the lowercase cleaned form used as a dictionary key.
func Normalize(raw string) string {
	return strings.ToLower(Clean(raw))
}
