package core

import (
	"github.com/go-viper/mapstructure/v2"

	"cmosrtc-go/errcode"
	"cmosrtc-go/types"
)

// As[T] asserts a payload to the concrete value type T.
// Pointers are not accepted. A nil payload is treated as the zero value of T.
func As[T any](v any) (T, errcode.Code) {
	var zero T
	if v == nil {
		return zero, ""
	}
	t, ok := v.(T)
	if !ok {
		return zero, errcode.InvalidPayload
	}
	return t, ""
}

// DecodeParams accepts T, *T, or a generic map (as produced by the config
// service) and returns T. A nil payload yields the zero value.
func DecodeParams[T any](v any) (T, error) {
	var out T
	switch p := v.(type) {
	case nil:
		return out, nil
	case T:
		return p, nil
	case *T:
		if p == nil {
			return out, nil
		}
		return *p, nil
	}
	if err := weakDecode(v, &out); err != nil {
		return out, &errcode.E{C: errcode.InvalidParams, Op: "decode", Msg: err.Error(), Err: err}
	}
	return out, nil
}

// DecodeHALConfig turns a config/hal payload into types.HALConfig.
func DecodeHALConfig(v any) (types.HALConfig, bool) {
	switch c := v.(type) {
	case types.HALConfig:
		return c, true
	case *types.HALConfig:
		return *c, c != nil
	case map[string]any:
		var out types.HALConfig
		if err := weakDecode(c, &out); err != nil {
			return types.HALConfig{}, false
		}
		return out, true
	}
	return types.HALConfig{}, false
}

func weakDecode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
