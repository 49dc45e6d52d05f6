package server

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"

	"connectrpc.com/connect"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// One worker is shared across tests via TestMain. Tests that need a store
// build their own service around it.
// ---------------------------------------------------------------------------

var testWorker *SearchWorker

// gravityAssist returns noun*192000 + 4330702 + verb at address 0.
const gravityAssist = "1,0,0,3,1,1,2,3,1,3,4,3,1,5,0,3,2,1,6,19,1,19,13,23,1,23,13,27,1,27,13,31,1,31,13,35,1,35,13,39,1,39,13,43,1,43,13,47,1,47,13,51,1,51,13,55,2,55,7,59,2,59,10,63,1,63,4,67,2,67,10,71,1,71,4,75,2,75,10,79,1,79,4,83,2,83,10,87,1,87,4,91,2,91,13,95,1,95,7,99,2,99,13,103,2,103,13,107,1,107,6,111,1,111,2,0,99,2,0,14,0"

func TestMain(m *testing.M) {
	testWorker = NewSearchWorker(4)

	code := m.Run()

	testWorker.Stop()
	os.Exit(code)
}

// newTestMachineService creates a MachineService without a store.
func newTestMachineService() *MachineService {
	return NewMachineService(testWorker, nil, 4)
}

// newTestClient serves a fresh IntcodeServer over httptest.
func newTestClient(t *testing.T, opts ...ServerOption) *MachineServiceClient {
	t.Helper()
	s := New(opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Stop()
	})
	return NewMachineServiceClient(ts.Client(), ts.URL)
}

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}

func bg() context.Context {
	return context.Background()
}

func u64(v uint64) *uint64 { return &v }

func expectCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("code = %v, want %v (err: %v)", got, want, err)
	}
}
