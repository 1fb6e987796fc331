package protocol

import (
	"context"

	"github.com/creachadair/jrpc2"
)

func NonNilSlice[T any](x []T) []T {
	if x == nil {
		return []T{}
	}
	return x
}

func newParseError(err error) *jrpc2.Error {
	return &jrpc2.Error{
		Code:    -32700, // Parse error
		Message: err.Error(),
	}
}

func createHandler[T any, O any](method func(ctx context.Context, params *T) (O, error)) jrpc2.Handler {
	return func(ctx context.Context, r *jrpc2.Request) (interface{}, error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		var params T
		if r.HasParams() {
			if err := r.UnmarshalParams(&params); err != nil {
				return nil, newParseError(err)
			}
		}
		result, err := method(ctx, &params)
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

func createEmptyResultHandler[T any](method func(ctx context.Context, params *T) error) jrpc2.Handler {
	return func(ctx context.Context, r *jrpc2.Request) (interface{}, error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		var params T
		if r.HasParams() {
			if err := r.UnmarshalParams(&params); err != nil {
				return nil, newParseError(err)
			}
		}
		return nil, method(ctx, &params)
	}
}

func createEmptyHandler(method func(ctx context.Context) error) jrpc2.Handler {
	return func(ctx context.Context, r *jrpc2.Request) (interface{}, error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		return nil, method(ctx)
	}
}

type Callbacker interface {
	Callback(ctx context.Context, method string, params interface{}) (*jrpc2.Response, error)
	Notify(ctx context.Context, method string, params interface{}) error
}

func createCallback[I any, O any](ctx context.Context, client Callbacker, method string, params *I, result *O) error {
	res, err := client.Callback(ctx, method, params)
	if err != nil {
		return err
	}
	if result != nil {
		return res.UnmarshalResult(result)
	}
	return nil
}

func createEmptyResultCallback[I any](ctx context.Context, client Callbacker, method string, params *I) error {
	_, err := client.Callback(ctx, method, params)
	if err != nil {
		return err
	}
	return nil
}

func createEmptyCallback(ctx context.Context, client Callbacker, method string) error {
	_, err := client.Callback(ctx, method, nil)
	if err != nil {
		return err
	}
	return nil
}

func createNotify[I any](ctx context.Context, client Callbacker, method string, params *I) error {
	return client.Notify(ctx, method, params)
}

func createEmptyNotify(ctx context.Context, client Callbacker, method string) error {
	return client.Notify(ctx, method, nil)
}
