package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Procedures served by the devtools RPC handlers.
const (
	JumpProcedure = "/signalstory.devtools.v1.DevtoolsService/Jump"
	ListProcedure = "/signalstory.devtools.v1.DevtoolsService/List"
)

// NewJumpHandler serves Jump as a connect unary RPC. The request is a
// Struct with a "store" string and a "state" value:
//
//	{"store": "counter", "state": {"value": 10}}
func NewJumpHandler(b *Bridge, opts ...connect.HandlerOption) (string, http.Handler) {
	return JumpProcedure, connect.NewUnaryHandler(
		JumpProcedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[emptypb.Empty], error) {
			fields := req.Msg.GetFields()

			name := fields["store"].GetStringValue()
			if name == "" {
				return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("store is required"))
			}
			state, ok := fields["state"]
			if !ok {
				return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("state is required"))
			}

			raw, err := protojson.Marshal(state)
			if err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, err)
			}

			if err := b.Jump(name, raw); err != nil {
				if errors.Is(err, ErrUnknownStore) {
					return nil, connect.NewError(connect.CodeNotFound, err)
				}
				return nil, connect.NewError(connect.CodeFailedPrecondition, err)
			}
			return connect.NewResponse(&emptypb.Empty{}), nil
		},
		opts...,
	)
}

// NewListHandler serves List as a connect unary RPC. The response is a
// Struct with a "stores" list of {id, name, state} objects, one per live
// container in the bridge's registry.
func NewListHandler(b *Bridge, opts ...connect.HandlerOption) (string, http.Handler) {
	return ListProcedure, connect.NewUnaryHandler(
		ListProcedure,
		func(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
			live := b.registry.Live()
			stores := make([]any, 0, len(live))
			for _, c := range live {
				state, err := plain(c.Value())
				if err != nil {
					return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("store %s: %w", c.Name(), err))
				}
				stores = append(stores, map[string]any{
					"id":    c.ID(),
					"name":  c.Name(),
					"state": state,
				})
			}

			msg, err := structpb.NewStruct(map[string]any{"stores": stores})
			if err != nil {
				return nil, connect.NewError(connect.CodeInternal, err)
			}
			return connect.NewResponse(msg), nil
		},
		opts...,
	)
}

// plain converts v to the JSON data model structpb accepts.
func plain(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
