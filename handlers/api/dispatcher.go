package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/evmstore/handlers/middleware"
	"github.com/ethpandaops/evmstore/services"
)

const maxRequestBodySize = 64 * 1024 * 1024

// Request is the body of a dispatcher call.
type Request struct {
	Name   string `json:"name"`
	Params []any  `json:"params"`
}

type operationFn func(ctx context.Context, d *Dispatcher, p params) (typedResponse, error)

type operation struct {
	responseType string
	handler      operationFn
	write        bool
}

// Dispatcher maps operation names 1:1 onto store operations.
type Dispatcher struct {
	logger     logrus.FieldLogger
	ledger     *services.LevelLedger
	limiter    *services.CallRateLimiter
	writeAuth  bool
	operations map[string]*operation
}

func NewDispatcher(logger logrus.FieldLogger, ledger *services.LevelLedger) *Dispatcher {
	return &Dispatcher{
		logger:     logger,
		ledger:     ledger,
		operations: buildOperations(),
	}
}

// SetCallRateLimiter enables per client call limits on the HTTP endpoint.
func (d *Dispatcher) SetCallRateLimiter(limiter *services.CallRateLimiter) {
	d.limiter = limiter
}

// SetWriteAuth requires a write token (see middleware.TokenAuthMiddleware) for operations
// that modify the store.
func (d *Dispatcher) SetWriteAuth(enabled bool) {
	d.writeAuth = enabled
}

// RegisterRoutes adds the dispatcher endpoint to router.
func (d *Dispatcher) RegisterRoutes(router *mux.Router) {
	router.Handle("/", d).Methods(http.MethodPost)
}

// OperationNames returns the names of all dispatched operations.
func (d *Dispatcher) OperationNames() []string {
	names := make([]string, 0, len(d.operations))
	for name := range d.operations {
		names = append(names, name)
	}
	return names
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := d.limiter.CheckCallLimit(r, 1); err != nil {
		sendErrorResponse(w, d.logger, "unknown", err)
		return
	}

	request, err := decodeRequest(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		sendErrorResponse(w, d.logger, "unknown", err)
		return
	}

	response, err := d.Dispatch(r.Context(), request)
	if err != nil {
		sendErrorResponse(w, d.logger, request.Name, err)
		return
	}

	sendOKResponse(w, d.logger, request.Name, response)
}

func decodeRequest(body io.Reader) (*Request, error) {
	decoder := json.NewDecoder(body)
	decoder.UseNumber()

	request := &Request{}
	if err := decoder.Decode(request); err != nil {
		return nil, fmt.Errorf("%w: invalid request body: %v", ErrMalformedInput, err)
	}
	if request.Name == "" {
		return nil, fmt.Errorf("%w: missing operation name", ErrMalformedInput)
	}
	return request, nil
}

// DecodeRequest parses a raw request body the same way the HTTP endpoint does.
func DecodeRequest(body []byte) (*Request, error) {
	return decodeRequest(bytes.NewReader(body))
}

// Dispatch runs the named operation and returns its typed response.
func (d *Dispatcher) Dispatch(ctx context.Context, request *Request) (any, error) {
	op := d.operations[request.Name]
	if op == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, request.Name)
	}
	if op.write && d.writeAuth && !middleware.HasWriteAccess(ctx) {
		return nil, fmt.Errorf("%w: %v requires a write token", middleware.ErrUnauthorized, request.Name)
	}

	startTime := time.Now()
	response, err := op.handler(ctx, d, params(request.Params))
	if err != nil {
		return nil, err
	}
	response.setType(op.responseType)

	d.logger.WithFields(logrus.Fields{
		"operation": request.Name,
		"duration":  time.Since(startTime),
	}).Tracef("dispatched operation")

	return response, nil
}
