package snapkit

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
)

const sendMediaSchemaSource = `{
	"type": "object",
	"required": ["mediaType"],
	"properties": {
		"mediaType":     {"type": "string", "enum": ["PHOTO", "VIDEO", "NONE"]},
		"path":          {"type": ["string", "null"]},
		"imagePath":     {"type": ["string", "null"]},
		"videoPath":     {"type": ["string", "null"]},
		"caption":       {"type": ["string", "null"]},
		"attachmentUrl": {"type": ["string", "null"]},
		"sticker": {
			"type": ["object", "null"],
			"required": ["imagePath", "width", "height", "offsetX", "offsetY", "rotation"],
			"properties": {
				"imagePath": {"type": "string", "minLength": 1},
				"width":     {"type": "number"},
				"height":    {"type": "number"},
				"offsetX":   {"type": "number"},
				"offsetY":   {"type": "number"},
				"rotation":  {"type": "number"}
			}
		}
	}
}`

const legacyShareSchemaSource = `{
	"type": "object",
	"properties": {
		"photoPath": {"type": ["string", "null"]},
		"videoPath": {"type": ["string", "null"]},
		"caption":   {"type": ["string", "null"]},
		"link":      {"type": ["string", "null"]},
		"sticker": {
			"type": ["object", "null"],
			"required": ["imagePath"],
			"properties": {
				"imagePath": {"type": "string", "minLength": 1},
				"size": {
					"type": "object",
					"required": ["width", "height"],
					"properties": {"width": {"type": "number"}, "height": {"type": "number"}}
				},
				"offset": {
					"type": "object",
					"required": ["x", "y"],
					"properties": {"x": {"type": "number"}, "y": {"type": "number"}}
				},
				"rotation": {
					"type": "object",
					"required": ["angle"],
					"properties": {"angle": {"type": "number"}}
				}
			}
		}
	}
}`

const verifyPhoneNumberSchemaSource = `{
	"type": "object",
	"required": ["phoneNumber", "region"],
	"properties": {
		"phoneNumber": {"type": "string", "minLength": 1},
		"region":      {"type": "string", "minLength": 1}
	}
}`

var (
	sendMediaSchema         = mustSchema(sendMediaSchemaSource)
	legacyShareSchema       = mustSchema(legacyShareSchemaSource)
	verifyPhoneNumberSchema = mustSchema(verifyPhoneNumberSchemaSource)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("snapkit:schema - invalid schema: %v", err))
	}
	return schema
}

// validate checks args against schema and joins every violation into one error.
func validate(schema *gojsonschema.Schema, args dispatcher.Arguments) error {
	doc := map[string]interface{}(args)
	if doc == nil {
		doc = map[string]interface{}{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}
