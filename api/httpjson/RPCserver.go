package httpjson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashpool/snarkOS-1/api/common"
	"github.com/hashpool/snarkOS-1/api/common/errcode"
	"github.com/hashpool/snarkOS-1/api/ratelimiter"
	"github.com/hashpool/snarkOS-1/config"
	"github.com/hashpool/snarkOS-1/util/log"
)

// RPCServer serves the JSON-RPC method set over HTTP POST.
type RPCServer struct {
	// keeps track of every function to be called on specific rpc call
	mainMux ServeMux

	listener string
	serverer common.Serverer
	httpSrv  *http.Server
}

type ServeMux struct {
	sync.RWMutex

	// collection of handlers
	m map[string]common.Handler
}

// NewServer will create a new RPC server instance.
func NewServer(serverer common.Serverer) *RPCServer {
	return &RPCServer{
		mainMux: ServeMux{
			m: make(map[string]common.Handler),
		},
		listener: ":" + strconv.Itoa(int(config.Parameters.HttpJsonPort)),
		serverer: serverer,
	}
}

func (s *RPCServer) write(w http.ResponseWriter, data []byte) {
	w.Header().Add("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("content-type", "application/json;charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

func (s *RPCServer) writeError(w http.ResponseWriter, id interface{}, code errcode.ErrCode, data interface{}) {
	resp, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    -code,
			"message": errcode.ErrMessage[code],
			"data":    data,
		},
		"id": id,
	})
	if err != nil {
		log.Errorf("HTTP JSON RPC Handle - json.Marshal: %v", err)
		return
	}
	s.write(w, resp)
}

// Handle answers one JSON-RPC call.
func (s *RPCServer) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !ratelimiter.AllowRequest(host) {
		s.writeError(w, nil, errcode.SERVICE_CEILING, "rate limit exceeded")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Errorf("HTTP JSON RPC Handle - read body: %v", err)
		return
	}
	request := make(map[string]interface{})
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeError(w, nil, errcode.INVALID_PARAMS, err.Error())
		return
	}

	method, ok := request["method"].(string)
	if !ok {
		s.writeError(w, request["id"], errcode.INVALID_METHOD, "method should be a string")
		return
	}

	s.mainMux.RLock()
	function, ok := s.mainMux.m[method]
	s.mainMux.RUnlock()
	if !ok {
		log.Warningf("HTTP JSON RPC Handle - no function to call for %s", method)
		s.writeError(w, request["id"], errcode.INVALID_METHOD, fmt.Sprintf("method %q was not found on the server", method))
		return
	}

	params, _ := request["params"].(map[string]interface{})
	if params == nil {
		params = make(map[string]interface{})
	}

	response := function(s.serverer, params, r.Context())
	code := response["error"].(errcode.ErrCode)
	if code != errcode.SUCCESS {
		s.writeError(w, request["id"], code, response["resultOrData"])
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"result":  response["resultOrData"],
		"id":      request["id"],
	})
	if err != nil {
		log.Errorf("HTTP JSON RPC Handle - json.Marshal: %v", err)
		return
	}
	s.write(w, data)
}

// HandleFunc registers a function to be called for a specific rpc call.
func (s *RPCServer) HandleFunc(pattern string, handler common.Handler) {
	s.mainMux.Lock()
	defer s.mainMux.Unlock()
	s.mainMux.m[pattern] = handler
}

// Start registers the jsonrpc-visible handlers and serves until the
// listener fails or Stop is called.
func (s *RPCServer) Start() error {
	for name, handler := range common.InitialAPIHandlers() {
		if handler.IsAccessableByJsonrpc() {
			s.HandleFunc(name, handler.Handler)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.Handle)
	s.httpSrv = &http.Server{
		Addr:        s.listener,
		Handler:     mux,
		ReadTimeout: config.Parameters.RPCReadTimeout * time.Second,
	}

	log.Infof("JSON-RPC server listening on %s", s.listener)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *RPCServer) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
