package converters

import (
	"context"
	"fmt"

	"github.com/conduit-lang/dispatch/internal/conversion"
	"gopkg.in/yaml.v3"
)

func encodeYAML(ctx context.Context, result *conversion.Result) error {
	env, err := envelopeOf(result)
	if err != nil {
		return err
	}
	// go through the JSON model so yaml keys follow the json tags of the payload
	generic, err := normalize(env)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(plainNumbers(generic))
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	result.Data = data
	return nil
}

func decodeYAML(ctx context.Context, result *conversion.Result) error {
	data, err := payload(result, YAML)
	if err != nil {
		return err
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	result.Data = v
	return nil
}

func transcodeJSONToYAML(ctx context.Context, result *conversion.Result) error {
	data, err := payload(result, JSON)
	if err != nil {
		return err
	}
	v, err := unmarshalJSON(data)
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	out, err := yaml.Marshal(plainNumbers(v))
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	result.Data = out
	return nil
}

func transcodeYAMLToJSON(pretty bool) conversion.ConvertFunc {
	return func(ctx context.Context, result *conversion.Result) error {
		data, err := payload(result, YAML)
		if err != nil {
			return err
		}
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("invalid YAML: %w", err)
		}
		out, err := marshalJSON(v, pretty)
		if err != nil {
			return err
		}
		result.Data = out
		return nil
	}
}
