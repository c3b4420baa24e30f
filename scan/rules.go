package scan

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rule is one weighted indicator of the fixed catalogue.
type Rule struct {
	ID       string
	Label    string
	Patterns []*regexp.Regexp
	Weight   int
	Hint     string
}

// namePattern matches a PDF name token ignoring ASCII case; the trailing
// word boundary keeps /JS from matching inside /JSFoo.
func namePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(foldASCII(name) + `\b`)
}

// foldASCII quotes s and lets each ASCII letter match either case. Unlike
// (?i) it never folds non-ASCII runes such as U+017F onto ASCII letters.
func foldASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		lower, upper := unicode.ToLower(r), unicode.ToUpper(r)
		if r < utf8.RuneSelf && lower != upper {
			b.WriteString("[" + string(lower) + string(upper) + "]")
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	return b.String()
}

func namePatterns(names ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(names))
	for i, n := range names {
		out[i] = namePattern(n)
	}
	return out
}

// Rules is the indicator catalogue. Output order always follows this slice.
var Rules = []Rule{
	{
		ID:       "javascript",
		Label:    "JavaScript",
		Patterns: namePatterns("/JavaScript", "/JS"),
		Weight:   30,
		Hint:     "JavaScript in PDFs ist ein häufig genutzter Angriffsvektor.",
	},
	{
		ID:       "openaction",
		Label:    "OpenAction / AA",
		Patterns: namePatterns("/OpenAction", "/AA"),
		Weight:   18,
		Hint:     "Automatische Aktionen beim Öffnen können missbraucht werden.",
	},
	{
		ID:       "launch",
		Label:    "Launch Action",
		Patterns: namePatterns("/Launch"),
		Weight:   28,
		Hint:     "Kann externe Programme/Dateien starten.",
	},
	{
		ID:       "embedded",
		Label:    "Embedded Files",
		Patterns: namePatterns("/EmbeddedFile", "/Filespec"),
		Weight:   16,
		Hint:     "Eingebettete Dateien sind ein häufiges Delivery-Muster.",
	},
	{
		ID:       "acroform",
		Label:    "AcroForm / XFA",
		Patterns: namePatterns("/AcroForm", "/XFA"),
		Weight:   10,
		Hint:     "Formulare können komplexe Inhalte enthalten.",
	},
	{
		ID:       "richmedia",
		Label:    "RichMedia / Multimedia",
		Patterns: namePatterns("/RichMedia", "/Annot", "/Sound", "/Movie"),
		Weight:   8,
		Hint:     "Multimedia/Annotations erhöhen Komplexität und Angriffsfläche.",
	},
	{
		ID:       "objstm",
		Label:    "ObjStm / XRef Streams",
		Patterns: namePatterns("/ObjStm", "/XRef"),
		Weight:   4,
		Hint:     "Objekt-Streams erschweren manuelle Analyse (nicht per se bösartig).",
	},
	{
		ID:       "encrypt",
		Label:    "Encrypt",
		Patterns: namePatterns("/Encrypt"),
		Weight:   20,
		Hint:     "Verschlüsselte PDFs erschweren Analyse, können Inhalte verstecken.",
	},
}
