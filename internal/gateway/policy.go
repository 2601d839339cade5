package gateway

import "log/slog"

type column int

const (
	colSource column = iota
	colInterface
	colAction
	colProtocol
	colPort
	colDestination
	colComment
)

// decoder turns one raw field into the value handed to the alias resolver.
// A nil result means "not present".
type decoder func(v Value) any

// text accepts scalars and lists. Objects are not text.
func text(v Value) any {
	if v.Kind() == KindObject {
		slog.Debug("Ignoring object where text was expected")
		return nil
	}
	return v.Raw()
}

// address accepts a flat value or an {network, address, any} object. An
// object flagged "any" without network or address yields nil.
func address(v Value) any {
	if v.Kind() != KindObject {
		return text(v)
	}
	for _, key := range []string{"network", "address"} {
		if f := v.Get(key); f.Truthy() {
			return text(f)
		}
	}
	return nil
}

type extractor struct {
	path   string
	decode decoder
}

// policy lists, per canonical column, the raw fields to try in order. The
// first truthy one wins.
type policy map[column][]extractor

func (p policy) extract(raw Value, col column) any {
	for _, e := range p[col] {
		v := raw.Path(e.path)
		if !v.Truthy() {
			continue
		}
		if out := e.decode(v); out != nil && (Value{raw: out}).Truthy() {
			return out
		}
	}
	return nil
}

var pfsensePolicy = policy{
	colSource:      {{"source", address}},
	colInterface:   {{"interface", text}},
	colAction:      {{"type", text}},
	colProtocol:    {{"protocol", text}},
	colPort:        {{"destination_port", text}, {"destination.port", text}},
	colDestination: {{"destination", address}},
	colComment:     {{"descr", text}},
}

var opnsensePolicy = policy{
	colSource:      {{"source", address}, {"source_net", text}},
	colInterface:   {{"interface", text}},
	colAction:      {{"action", text}},
	colProtocol:    {{"protocol", text}},
	colPort:        {{"destination.port", text}, {"destination_port", text}},
	colDestination: {{"destination", address}, {"destination_net", text}},
	colComment:     {{"description", text}},
}
