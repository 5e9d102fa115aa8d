package config

import (
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// AttributeMap is a loosely typed tree as decoded from a config file.
type AttributeMap map[string]interface{}

// Has reports whether key is set.
func (am AttributeMap) Has(key string) bool {
	_, ok := am[key]
	return ok
}

// TransformAttributeMap decodes attributes into a T using json field tags. Durations may be
// given as strings such as "250us". Keys with no matching field are returned.
func TransformAttributeMap[T any](attributes AttributeMap) (T, []string, error) {
	var out T

	var forResult interface{}
	toT := reflect.TypeOf(out)
	if toT == nil {
		// nothing to transform
		return out, nil, nil
	}
	if toT.Kind() == reflect.Ptr {
		// needs to be allocated then
		var ok bool
		out, ok = reflect.New(toT.Elem()).Interface().(T)
		if !ok {
			return out, nil, errors.Errorf("failed to allocate config type %T", out)
		}
		forResult = out
	} else {
		forResult = &out
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     forResult,
		Metadata:   &md,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return out, nil, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return out, nil, err
	}
	return out, md.Unused, nil
}
