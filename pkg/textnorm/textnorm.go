// Package textnorm normaliza nombres para los libros regulatorios (mayúsculas, sin diacríticos).
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Name devuelve el nombre en mayúsculas, sin tildes y con espacios simples.
// "  José  da   Conceição " -> "JOSE DA CONCEICAO".
func Name(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = cases.Upper(language.Und).String(out)
	return strings.Join(strings.Fields(out), " ")
}

// Code normaliza códigos de registro (consejo profesional, estado): mayúsculas y sin espacios externos.
func Code(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
