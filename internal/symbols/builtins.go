package symbols

// builtinNames are reserved: declaring over any of them is ShadowsBuiltin.
// The list covers primitive type names, builtin functions and the concurrency
// type constructors.
var builtinNames = []string{
	"int",
	"float",
	"bool",
	"string",
	"byte",
	"void",
	"none",
	"self",
	"error",
	"result",
	"print",
	"println",
	"len",
	"assert",
	"panic",
	"Task",
	"Chan",
	"map",
	"set",
}
