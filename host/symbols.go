package host

import (
	"strings"
	"unicode"
)

// SymbolNamer maps a native class and its members to exported symbol names.
// Mangled C++ names are toolchain specific; namers target whatever flat
// entry points the native library exports for its classes.
type SymbolNamer interface {
	Constructor(class string) string
	Destructor(class string) string
	Member(class, member string) string
}

// CShimNamer names extern "C" shims the way wrapper generators emit them:
// Class_new, Class_delete and Class_member. Scope separators and other
// characters that cannot appear in a C identifier become underscores, so
// ROOT::RFile::Open resolves to ROOT_RFile_Open.
type CShimNamer struct {
	// Prefix is prepended to every symbol, e.g. "scaroot_".
	Prefix string
}

func (n CShimNamer) Constructor(class string) string {
	return n.Member(class, "new")
}

func (n CShimNamer) Destructor(class string) string {
	return n.Member(class, "delete")
}

func (n CShimNamer) Member(class, member string) string {
	return n.Prefix + cIdent(class) + "_" + cIdent(member)
}

func cIdent(s string) string {
	s = strings.ReplaceAll(s, "::", "_")
	return strings.Map(func(r rune) rune {
		if r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, s)
}
