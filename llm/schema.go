package llm

import "github.com/invopop/jsonschema"

// GenerateSchema reflects a strict JSON schema for structured outputs
func GenerateSchema[T any]() any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
