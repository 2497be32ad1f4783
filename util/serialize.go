package util

import "github.com/kr/pretty"

// PrettyExpose lets a value pick what its debug dump shows, e.g. a node
// without its adjacency lists.
type PrettyExpose interface {
	PrettyExpose() interface{}
}

// Pretty renders e with kr/pretty for debug logs.
func Pretty(e interface{}) string {
	return pretty.Sprint(expose(e))
}

// PrettyF formats vs like pretty.Sprintf, exposing each of them first.
func PrettyF(format string, vs ...interface{}) string {
	r := make([]interface{}, 0, len(vs))
	for _, v := range vs {
		r = append(r, expose(v))
	}
	return pretty.Sprintf(format, r...)
}

// PrettyDiff lists the fields that differ between before and after, one
// "path: old != new" entry each. Nil when they are equal.
func PrettyDiff(before, after interface{}) []string {
	return pretty.Diff(expose(before), expose(after))
}

func expose(v interface{}) interface{} {
	if e, ok := v.(PrettyExpose); ok {
		return e.PrettyExpose()
	}
	return v
}
