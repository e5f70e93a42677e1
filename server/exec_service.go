package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/jasm/compiler"
	"github.com/chazu/jasm/vm"
)

const (
	// ExecutionServiceName is the fully-qualified name of the service.
	ExecutionServiceName = "jasm.v1.ExecutionService"

	ExecuteProcedure = "/" + ExecutionServiceName + "/Execute"
	CheckProcedure   = "/" + ExecutionServiceName + "/Check"
)

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

type ExecuteRequest struct {
	Source   string `cbor:"source" json:"source"`
	MaxSteps int    `cbor:"max_steps,omitempty" json:"max_steps,omitempty"`
}

type ExecuteResponse struct {
	RunID    string       `cbor:"run_id" json:"run_id"`
	Snapshot *vm.Snapshot `cbor:"snapshot" json:"snapshot"`
}

type CheckRequest struct {
	Source string `cbor:"source" json:"source"`
}

type CheckResponse struct {
	Diagnostics []compiler.Diagnostic `cbor:"diagnostics,omitempty" json:"diagnostics,omitempty"`
	HasErrors   bool                  `cbor:"has_errors" json:"has_errors"`
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// ExecService implements the ExecutionService Connect handler.
type ExecService struct {
	pool           *Pool
	maxSourceBytes int
	log            commonlog.Logger
}

// NewExecService creates an ExecService. maxSourceBytes <= 0 means no limit.
func NewExecService(pool *Pool, maxSourceBytes int) *ExecService {
	return &ExecService{
		pool:           pool,
		maxSourceBytes: maxSourceBytes,
		log:            commonlog.GetLogger("jasm.server"),
	}
}

// Execute runs a program on the pool and returns its snapshot. Program
// failures are reported in the snapshot, not as RPC errors.
func (s *ExecService) Execute(
	ctx context.Context,
	req *connect.Request[ExecuteRequest],
) (*connect.Response[ExecuteResponse], error) {
	if err := s.validate(req.Msg.Source); err != nil {
		return nil, err
	}

	run, err := s.pool.Run(ctx, req.Msg.Source, req.Msg.MaxSteps)
	if err != nil {
		return nil, poolError(err)
	}

	return connect.NewResponse(&ExecuteResponse{
		RunID:    run.ID,
		Snapshot: vm.NewSnapshot(run.Result),
	}), nil
}

// Check statically checks a program without running it.
func (s *ExecService) Check(
	ctx context.Context,
	req *connect.Request[CheckRequest],
) (*connect.Response[CheckResponse], error) {
	if err := s.validate(req.Msg.Source); err != nil {
		return nil, err
	}

	diags := compiler.Check(req.Msg.Source)
	return connect.NewResponse(&CheckResponse{
		Diagnostics: diags,
		HasErrors:   compiler.HasErrors(diags),
	}), nil
}

func (s *ExecService) validate(source string) error {
	if source == "" {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	if s.maxSourceBytes > 0 && len(source) > s.maxSourceBytes {
		return connect.NewError(connect.CodeResourceExhausted,
			fmt.Errorf("source is %d bytes, limit is %d", len(source), s.maxSourceBytes))
	}
	return nil
}

func poolError(err error) error {
	switch {
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrPoolStopped):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// NewExecutionServiceHandler builds the HTTP handler for svc and returns
// the path prefix to mount it on.
func NewExecutionServiceHandler(svc *ExecService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(codecOptions(), opts...)
	if svc.maxSourceBytes > 0 {
		// Room for framing and escaping on top of the source itself.
		opts = append(opts, connect.WithReadMaxBytes(2*svc.maxSourceBytes+4096))
	}

	mux := http.NewServeMux()
	mux.Handle(ExecuteProcedure, connect.NewUnaryHandler(ExecuteProcedure, svc.Execute, opts...))
	mux.Handle(CheckProcedure, connect.NewUnaryHandler(CheckProcedure, svc.Check, opts...))
	return "/" + ExecutionServiceName + "/", mux
}
