package normalize

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNameProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Name is idempotent", prop.ForAll(
		func(s string) bool {
			once := Name(s)
			return Name(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("Name has no leading, trailing or doubled spaces", prop.ForAll(
		func(s string) bool {
			out := Name(s)
			return out == strings.TrimSpace(out) && !strings.Contains(out, "  ")
		},
		gen.AnyString(),
	))

	properties.Property("Name ignores case", prop.ForAll(
		func(s string) bool {
			return Name(strings.ToUpper(s)) == Name(strings.ToLower(s))
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
