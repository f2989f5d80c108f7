// internal/report/schema.go
package report

import "github.com/kaptinlin/jsonschema"

// reportOutputSchema is the shape the oracle is asked to return. Output that
// parses as JSON but fails this schema is treated the same as unparseable
// output: the synthesizer degrades instead of failing.
const reportOutputSchema = `{
  "type": "object",
  "additionalProperties": true,
  "required": ["summary", "strengths", "gaps", "recommended_next_steps", "mastery_level", "confidence"],
  "properties": {
    "summary": { "type": "string" },
    "strengths": { "type": "array", "items": { "type": "string" } },
    "gaps": { "type": "array", "items": { "type": "string" } },
    "recommended_next_steps": { "type": "array", "items": { "type": "string" } },
    "mastery_level": {
      "type": "string",
      "enum": ["novice", "developing", "competent", "proficient"]
    },
    "confidence": { "type": "number", "minimum": 0, "maximum": 1 }
  }
}`

var outputSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(reportOutputSchema))
	if err != nil {
		panic("compile report output schema: " + err.Error())
	}
	return schema
}

// conformsToSchema reports whether the candidate JSON matches the required
// report shape.
func conformsToSchema(data []byte) bool {
	return outputSchema.ValidateJSON(data).IsValid()
}
