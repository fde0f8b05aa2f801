package stdlib

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/fusabi-lang/fusabi/internal/host"
	"github.com/fusabi-lang/fusabi/internal/vm"
)

// Encoding returns the "Encoding" module: yamlParse/yamlStringify and
// jsonParse/jsonStringify, targeting host.ToValue/FromValue for both.
// Results are wrapped as Result("Ok"/"Err") rather than raising a
// RuntimeError, since a malformed document is an expected, scriptable
// outcome.
//
// Json is built directly on encoding/json since no third-party JSON
// library fits the rest of this module's dependency stack — the one
// stdlib use here that isn't standing in for a missing dependency on
// purpose.
func Encoding(engine *vm.VM) *host.Module {
	return host.NewModule("").
		FuncN("yamlParse", 1, func(args []vm.Value) (vm.Value, error) {
			s, err := host.Str(args[0])
			if err != nil {
				return vm.Value{}, err
			}
			var data interface{}
			if err := yaml.Unmarshal([]byte(s), &data); err != nil {
				return vm.VariantVal("Result", "Err", []vm.Value{vm.Str(fmt.Sprintf("YAML parse error: %v", err))}), nil
			}
			v, err := host.ToValue(normalizeYaml(data))
			if err != nil {
				return vm.VariantVal("Result", "Err", []vm.Value{vm.Str(err.Error())}), nil
			}
			return vm.VariantVal("Result", "Ok", []vm.Value{v}), nil
		}).
		Func1("yamlStringify", func(v vm.Value) (vm.Value, error) {
			goVal, err := host.FromValue(v)
			if err != nil {
				return vm.Value{}, err
			}
			out, err := yaml.Marshal(goVal)
			if err != nil {
				return vm.Value{}, fmt.Errorf("host: yaml encoding: %w", err)
			}
			return vm.Str(string(out)), nil
		}).
		FuncN("jsonParse", 1, func(args []vm.Value) (vm.Value, error) {
			s, err := host.Str(args[0])
			if err != nil {
				return vm.Value{}, err
			}
			var data interface{}
			if err := json.Unmarshal([]byte(s), &data); err != nil {
				return vm.VariantVal("Result", "Err", []vm.Value{vm.Str(fmt.Sprintf("JSON parse error: %v", err))}), nil
			}
			v, err := host.ToValue(data)
			if err != nil {
				return vm.VariantVal("Result", "Err", []vm.Value{vm.Str(err.Error())}), nil
			}
			return vm.VariantVal("Result", "Ok", []vm.Value{v}), nil
		}).
		Func1("jsonStringify", func(v vm.Value) (vm.Value, error) {
			goVal, err := host.FromValue(v)
			if err != nil {
				return vm.Value{}, err
			}
			out, err := json.Marshal(goVal)
			if err != nil {
				return vm.Value{}, fmt.Errorf("host: json encoding: %w", err)
			}
			return vm.Str(string(out)), nil
		})
}

// normalizeYaml folds yaml.v3's float64-for-whole-numbers quirk back to
// int64, using the same "v == float64(int64(v))" check a JSON decoder
// would, so host.ToValue sees a consistent Int-vs-float split.
func normalizeYaml(data interface{}) interface{} {
	switch v := data.(type) {
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		return v
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = normalizeYaml(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, e := range v {
			out[k] = normalizeYaml(e)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, e := range v {
			out[fmt.Sprintf("%v", k)] = normalizeYaml(e)
		}
		return out
	default:
		return v
	}
}
