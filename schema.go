package relay

import "github.com/invopop/jsonschema"

// The payload shape per event type is agreed out-of-band between the peers;
// these flags keep the reflected schema strict enough to document that
// contract.
var reflector = jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

// PayloadSchema reflects the JSON schema for an event payload type. Useful
// for publishing the per-event contract next to the handler that consumes it
// (see Typed).
func PayloadSchema[T any]() *jsonschema.Schema {
	var v T
	return reflector.Reflect(v)
}
