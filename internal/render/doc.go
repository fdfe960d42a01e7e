// Package render turns logical template paths into documents.
//
// An Engine searches an ordered list of roots, for example
//
//	/usr/share/jenkey/templates
//	~/.local/share/jenkey/templates
//	./templates
//
// and parses the first match with text/template. Templates get the sprig
// function map, an xml escaping helper and an include function that resolves
// names relative to the including template before falling back to the roots.
//
// Missing context keys are errors, never empty output.
package render
