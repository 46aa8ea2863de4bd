package definition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/diegoholiveira/jsonlogic/v3"
	"github.com/robfig/cron/v3"

	"mercator-hq/conditional/pkg/condition"
)

func (r *Registry) registerBuiltins() {
	r.factories["true"] = constant(true)
	r.factories["false"] = constant(false)
	r.factories["fail"] = failFactory
	r.factories["sleep"] = sleepFactory
	r.factories["state.exists"] = stateExistsFactory
	r.factories["state.equals"] = stateEqualsFactory
	r.factories["state.truthy"] = stateTruthyFactory
	r.factories["jsonlogic"] = jsonLogicFactory
	r.factories["schedule"] = r.scheduleFactory
}

func constant(value bool) Factory {
	return func(args map[string]any) (condition.Func, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("takes no args")
		}
		return func(context.Context, *condition.RunContext) (bool, error) {
			return value, nil
		}, nil
	}
}

type failArgs struct {
	Message string `mapstructure:"message"`
}

func failFactory(args map[string]any) (condition.Func, error) {
	var a failArgs
	if err := DecodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Message == "" {
		a.Message = "failed"
	}
	return func(context.Context, *condition.RunContext) (bool, error) {
		return false, errors.New(a.Message)
	}, nil
}

type sleepArgs struct {
	Duration time.Duration `mapstructure:"duration"`
	Value    bool          `mapstructure:"value"`
}

func sleepFactory(args map[string]any) (condition.Func, error) {
	var a sleepArgs
	if err := DecodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Duration < 0 {
		return nil, fmt.Errorf("duration must not be negative")
	}
	return func(ctx context.Context, _ *condition.RunContext) (bool, error) {
		timer := time.NewTimer(a.Duration)
		defer timer.Stop()
		select {
		case <-timer.C:
			return a.Value, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}, nil
}

type stateArgs struct {
	Key   string `mapstructure:"key"`
	Value any    `mapstructure:"value"`
}

func decodeStateArgs(args map[string]any, needValue bool) (stateArgs, error) {
	var a stateArgs
	if err := DecodeArgs(args, &a); err != nil {
		return a, err
	}
	if a.Key == "" {
		return a, fmt.Errorf("key is required")
	}
	if _, ok := args["value"]; needValue && !ok {
		return a, fmt.Errorf("value is required")
	}
	if _, ok := args["value"]; !needValue && ok {
		return a, fmt.Errorf("value is not supported")
	}
	return a, nil
}

func stateExistsFactory(args map[string]any) (condition.Func, error) {
	a, err := decodeStateArgs(args, false)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, rc *condition.RunContext) (bool, error) {
		_, ok := rc.Get(a.Key)
		return ok, nil
	}, nil
}

func stateEqualsFactory(args map[string]any) (condition.Func, error) {
	a, err := decodeStateArgs(args, true)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, rc *condition.RunContext) (bool, error) {
		got, ok := rc.Get(a.Key)
		return ok && equalValues(got, a.Value), nil
	}, nil
}

func stateTruthyFactory(args map[string]any) (condition.Func, error) {
	a, err := decodeStateArgs(args, false)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, rc *condition.RunContext) (bool, error) {
		got, _ := rc.Get(a.Key)
		return truthy(got), nil
	}, nil
}

type jsonLogicArgs struct {
	Rule any `mapstructure:"rule"`
}

func jsonLogicFactory(args map[string]any) (condition.Func, error) {
	var a jsonLogicArgs
	if err := DecodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Rule == nil {
		return nil, fmt.Errorf("rule is required")
	}
	rule, err := json.Marshal(a.Rule)
	if err != nil {
		return nil, fmt.Errorf("rule is not JSON: %w", err)
	}
	if !jsonlogic.IsValid(bytes.NewReader(rule)) {
		return nil, fmt.Errorf("rule is not valid JSON Logic")
	}

	return func(_ context.Context, rc *condition.RunContext) (bool, error) {
		data, err := json.Marshal(rc.Snapshot())
		if err != nil {
			return false, fmt.Errorf("encode state: %w", err)
		}

		var out bytes.Buffer
		if err := jsonlogic.Apply(bytes.NewReader(rule), bytes.NewReader(data), &out); err != nil {
			return false, fmt.Errorf("apply rule: %w", err)
		}

		var result any
		if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &result); err != nil {
			return false, fmt.Errorf("decode result: %w", err)
		}
		return truthy(result), nil
	}, nil
}

type scheduleArgs struct {
	Cron   string        `mapstructure:"cron"`
	Window time.Duration `mapstructure:"window"`
}

// scheduleFactory is true while the clock is within window after an
// activation of a standard cron expression.
func (r *Registry) scheduleFactory(args map[string]any) (condition.Func, error) {
	var a scheduleArgs
	if err := DecodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Window <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}
	schedule, err := cron.ParseStandard(a.Cron)
	if err != nil {
		return nil, fmt.Errorf("invalid cron %q: %w", a.Cron, err)
	}

	return func(context.Context, *condition.RunContext) (bool, error) {
		now := r.now()
		next := schedule.Next(now.Add(-a.Window))
		return !next.After(now), nil
	}, nil
}

// equalValues compares state values, treating numbers of different Go
// types as equal when their values are.
func equalValues(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// truthy follows JSON Logic truthiness: false, nil, zero, "" and empty
// collections are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	}
	return true
}
