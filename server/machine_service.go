package server

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/derwiath/adventofcode-2019/calibrate"
	"github.com/derwiath/adventofcode-2019/pkg/intcode"
	"github.com/derwiath/adventofcode-2019/store"
	"github.com/derwiath/adventofcode-2019/wire"
)

// MachineServiceName is the fully-qualified name of the service.
const MachineServiceName = "intcode.v1.MachineService"

// Procedure paths served by MachineService.
const (
	RunProcedure         = "/" + MachineServiceName + "/Run"
	CalibrateProcedure   = "/" + MachineServiceName + "/Calibrate"
	DisassembleProcedure = "/" + MachineServiceName + "/Disassemble"
)

// MachineService implements the MachineService Connect handler.
type MachineService struct {
	worker     *SearchWorker
	store      *store.Store
	maxWorkers int
}

// NewMachineService creates a MachineService. st may be nil to disable
// result caching.
func NewMachineService(worker *SearchWorker, st *store.Store, maxWorkers int) *MachineService {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &MachineService{
		worker:     worker,
		store:      st,
		maxWorkers: maxWorkers,
	}
}

// NewMachineServiceHandler builds an HTTP handler serving every procedure
// of svc. It returns the path prefix to mount the handler on.
func NewMachineServiceHandler(svc *MachineService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(RunProcedure, connect.NewUnaryHandler(RunProcedure, svc.Run, opts...))
	mux.Handle(CalibrateProcedure, connect.NewUnaryHandler(CalibrateProcedure, svc.Calibrate, opts...))
	mux.Handle(DisassembleProcedure, connect.NewUnaryHandler(DisassembleProcedure, svc.Disassemble, opts...))
	return "/" + MachineServiceName + "/", mux
}

// Run executes a program to completion.
func (s *MachineService) Run(
	ctx context.Context,
	req *connect.Request[RunRequest],
) (*connect.Response[RunResponse], error) {
	mem, err := parseProgram(req.Msg.Program)
	if err != nil {
		return nil, err
	}

	if req.Msg.Noun != nil || req.Msg.Verb != nil {
		if len(mem) <= calibrate.VerbAddress {
			return nil, connect.NewError(connect.CodeInvalidArgument, calibrate.ErrImageTooShort)
		}
		if req.Msg.Noun != nil {
			mem[calibrate.NounAddress] = *req.Msg.Noun
		}
		if req.Msg.Verb != nil {
			mem[calibrate.VerbAddress] = *req.Msg.Verb
		}
	}

	var opts []intcode.Option
	if req.Msg.Strict {
		opts = append(opts, intcode.WithStrictEnd())
	}
	m := intcode.NewMachine(mem, opts...)

	if _, err := s.worker.Do(ctx, func() (interface{}, error) {
		return nil, m.Run(ctx)
	}); err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&RunResponse{
		Result: mem[0],
		Memory: mem.String(),
		Steps:  m.Steps(),
		IP:     m.IP(),
	}), nil
}

// Calibrate searches for the noun/verb pair that produces the target.
func (s *MachineService) Calibrate(
	ctx context.Context,
	req *connect.Request[CalibrateRequest],
) (*connect.Response[CalibrateResponse], error) {
	mem, err := parseProgram(req.Msg.Program)
	if err != nil {
		return nil, err
	}
	hash, err := wire.ImageHash(mem)
	if err != nil {
		return nil, toConnectError(err)
	}

	q := store.DefaultSearch(req.Msg.Target)
	if req.Msg.NounDomain != nil {
		q.Noun = *req.Msg.NounDomain
	}
	if req.Msg.VerbDomain != nil {
		q.Verb = *req.Msg.VerbDomain
	}
	q.Workers = min(max(req.Msg.Workers, 1), s.maxWorkers)
	q.StrictEnd = req.Msg.Strict

	type outcome struct {
		res    calibrate.Result
		cached bool
	}
	v, err := s.worker.Do(ctx, func() (interface{}, error) {
		res, cached, err := s.store.Calibrate(ctx, mem, q)
		return outcome{res, cached}, err
	})

	resp := &CalibrateResponse{ImageHash: hash.String()}
	var nf *calibrate.NotFoundError
	switch {
	case err == nil:
		out := v.(outcome)
		resp.Found = true
		resp.Noun, resp.Verb = out.res.Noun, out.res.Verb
		resp.Answer = out.res.Answer()
		resp.Trials, resp.Faults = out.res.Trials, out.res.Faults
		resp.Cached = out.cached
	case errors.As(err, &nf):
		resp.Trials, resp.Faults = nf.Trials, nf.Faults
		resp.AllFaulted = nf.AllFaulted()
		if nf.FirstFault != nil {
			resp.FirstFault = nf.FirstFault.Error()
		}
		if out, ok := v.(outcome); ok {
			resp.Cached = out.cached
		}
	default:
		return nil, toConnectError(err)
	}

	log.Debug("calibrate", "image", resp.ImageHash, "target", q.Target, "found", resp.Found, "cached", resp.Cached)
	return connect.NewResponse(resp), nil
}

// Disassemble renders a listing of a program.
func (s *MachineService) Disassemble(
	ctx context.Context,
	req *connect.Request[DisassembleRequest],
) (*connect.Response[DisassembleResponse], error) {
	mem, err := parseProgram(req.Msg.Program)
	if err != nil {
		return nil, err
	}

	var listing string
	if req.Msg.Name != "" {
		listing = intcode.DisassembleWithName(mem, req.Msg.Name)
	} else {
		listing = intcode.Disassemble(mem)
	}
	return connect.NewResponse(&DisassembleResponse{Listing: listing}), nil
}

func parseProgram(text string) (intcode.Memory, error) {
	mem, err := intcode.ParseMemory(text)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return mem, nil
}

// toConnectError maps machine and search errors onto Connect codes.
func toConnectError(err error) error {
	var parseErr *intcode.ParseError
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case intcode.IsFault(err):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.As(err, &parseErr),
		errors.Is(err, intcode.ErrEmptyImage),
		errors.Is(err, calibrate.ErrImageTooShort),
		errors.Is(err, calibrate.ErrEmptyDomain),
		errors.Is(err, calibrate.ErrDomainTooLarge):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, errWorkerStopped):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
