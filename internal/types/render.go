package types

import (
	"fmt"
	"strings"
)

// String renders a type for diagnostics.
func (in *Interner) String(id TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch t.Kind {
	case KindInt, KindFloat, KindBool, KindString, KindByte, KindVoid:
		return t.Kind.String()
	case KindNamed, KindInterface, KindParam, KindError:
		name, _ := in.strings.Lookup(t.Name)
		if len(t.Args) == 0 {
			return name
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = in.String(a)
		}
		return fmt.Sprintf("%s<%s>", name, strings.Join(args, ", "))
	case KindNullable:
		return in.String(t.Elem) + "?"
	case KindArray:
		return "[]" + in.String(t.Elem)
	case KindMap:
		return fmt.Sprintf("map[%s]%s", in.String(t.Key), in.String(t.Elem))
	case KindSet:
		return fmt.Sprintf("set[%s]", in.String(t.Elem))
	case KindTask:
		return fmt.Sprintf("Task<%s>", in.String(t.Elem))
	case KindChan:
		return fmt.Sprintf("Chan<%s>", in.String(t.Elem))
	case KindFn:
		params := make([]string, len(t.Args))
		for i, a := range t.Args {
			params[i] = in.String(a)
		}
		s := fmt.Sprintf("fn(%s) %s", strings.Join(params, ", "), in.String(t.Result))
		if len(t.Errors) > 0 {
			names := make([]string, len(t.Errors))
			for i, e := range t.Errors {
				names[i], _ = in.strings.Lookup(e)
			}
			s += " ! {" + strings.Join(names, ", ") + "}"
		}
		return s
	}
	return "<invalid>"
}
