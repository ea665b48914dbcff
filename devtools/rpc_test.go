package devtools_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zuriscript/signalstory-sub000/devtools"
)

func rpcServer(t *testing.T, b *devtools.Bridge) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(devtools.NewJumpHandler(b))
	mux.Handle(devtools.NewListHandler(b))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestJumpRPC(t *testing.T) {
	b, c := setup(t)
	url := rpcServer(t, b)

	client := connect.NewClient[structpb.Struct, emptypb.Empty](http.DefaultClient, url+devtools.JumpProcedure)

	req, err := structpb.NewStruct(map[string]any{
		"store": "counter",
		"state": map[string]any{"value": 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.CallUnary(context.Background(), connect.NewRequest(req)); err != nil {
		t.Fatalf("Jump() error = %v", err)
	}
	if c.Read().Value != 5 {
		t.Errorf("Value = %d, want 5", c.Read().Value)
	}
}

func TestJumpRPC_Errors(t *testing.T) {
	b, _ := setup(t)
	url := rpcServer(t, b)
	client := connect.NewClient[structpb.Struct, emptypb.Empty](http.DefaultClient, url+devtools.JumpProcedure)

	tests := []struct {
		name string
		req  map[string]any
		code connect.Code
	}{
		{"missing store", map[string]any{"state": 1}, connect.CodeInvalidArgument},
		{"missing state", map[string]any{"store": "counter"}, connect.CodeInvalidArgument},
		{"unknown store", map[string]any{"store": "nope", "state": 1}, connect.CodeNotFound},
		{"bad state", map[string]any{"store": "counter", "state": "text"}, connect.CodeFailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, _ := structpb.NewStruct(tt.req)
			_, err := client.CallUnary(context.Background(), connect.NewRequest(msg))

			var cerr *connect.Error
			if !errors.As(err, &cerr) {
				t.Fatalf("error = %v, want *connect.Error", err)
			}
			if cerr.Code() != tt.code {
				t.Errorf("code = %v, want %v", cerr.Code(), tt.code)
			}
		})
	}
}

func TestListRPC(t *testing.T) {
	b, c := setup(t)
	url := rpcServer(t, b)
	client := connect.NewClient[emptypb.Empty, structpb.Struct](http.DefaultClient, url+devtools.ListProcedure)

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	stores := resp.Msg.GetFields()["stores"].GetListValue().GetValues()
	if len(stores) != 1 {
		t.Fatalf("stores = %d, want 1", len(stores))
	}
	entry := stores[0].GetStructValue().GetFields()
	if entry["id"].GetStringValue() != c.ID() || entry["name"].GetStringValue() != "counter" {
		t.Errorf("entry = %v", entry)
	}
	if v := entry["state"].GetStructValue().GetFields()["value"].GetNumberValue(); v != 10 {
		t.Errorf("state.value = %v, want 10", v)
	}
}
