package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// MachineServiceClient calls a remote MachineService.
type MachineServiceClient struct {
	run         *connect.Client[RunRequest, RunResponse]
	calibrate   *connect.Client[CalibrateRequest, CalibrateResponse]
	disassemble *connect.Client[DisassembleRequest, DisassembleResponse]
}

// NewMachineServiceClient creates a client for the service at baseURL,
// for example http://localhost:4568.
func NewMachineServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *MachineServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &MachineServiceClient{
		run:         connect.NewClient[RunRequest, RunResponse](httpClient, baseURL+RunProcedure, opts...),
		calibrate:   connect.NewClient[CalibrateRequest, CalibrateResponse](httpClient, baseURL+CalibrateProcedure, opts...),
		disassemble: connect.NewClient[DisassembleRequest, DisassembleResponse](httpClient, baseURL+DisassembleProcedure, opts...),
	}
}

// Run calls MachineService.Run.
func (c *MachineServiceClient) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	resp, err := c.run.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Calibrate calls MachineService.Calibrate.
func (c *MachineServiceClient) Calibrate(ctx context.Context, req *CalibrateRequest) (*CalibrateResponse, error) {
	resp, err := c.calibrate.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Disassemble calls MachineService.Disassemble.
func (c *MachineServiceClient) Disassemble(ctx context.Context, req *DisassembleRequest) (*DisassembleResponse, error) {
	resp, err := c.disassemble.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
