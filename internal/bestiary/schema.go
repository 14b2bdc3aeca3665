package bestiary

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// BuildSchema reflects the designer-facing bestiary document schema used
// for validation and editor tooling.
func BuildSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	entry := reflector.ReflectFromType(reflect.TypeOf(Archetype{}))
	if entry == nil {
		return nil, fmt.Errorf("bestiary: failed to reflect archetype schema")
	}
	entry.Version = ""
	entry.Title = "Bestiary Archetype"
	entry.Description = "Designer-authored combat numbers for one mob species."

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Type:        "array",
		Title:       "Duskhaven Bestiary",
		Description: "Mob archetype catalog consumed by the combat simulation.",
		Items:       entry,
	}
	return root, nil
}
