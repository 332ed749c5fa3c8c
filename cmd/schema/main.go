// Command schema prints the JSON schema of the cephbench configuration
// file, for editor completion and validation.
package main

import (
	"github.com/invopop/jsonschema"

	"github.com/canonical/ceph-bench/internal/config"
)

func main() {
	schema := jsonschema.Reflect(&config.Config{})
	json, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	println(string(json))
}
