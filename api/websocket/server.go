package websocket

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hashpool/snarkOS-1/api/common"
	"github.com/hashpool/snarkOS-1/api/common/errcode"
	"github.com/hashpool/snarkOS-1/api/ratelimiter"
	"github.com/hashpool/snarkOS-1/config"
	"github.com/hashpool/snarkOS-1/util/log"
)

const (
	writeWait  = 10 * time.Second
	maxMsgSize = 1 << 20
)

// WsServer mirrors the websocket-visible subset of the JSON-RPC method
// set: one request message in, one response message out, same handlers.
type WsServer struct {
	listener string
	serverer common.Serverer
	handlers map[string]common.APIHandler
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

func NewServer(serverer common.Serverer) *WsServer {
	handlers := make(map[string]common.APIHandler)
	for name, handler := range common.InitialAPIHandlers() {
		if handler.IsAccessableByWebsocket() {
			handlers[name] = handler
		}
	}
	return &WsServer{
		listener: ":" + strconv.Itoa(int(config.Parameters.HttpWsPort)),
		serverer: serverer,
		handlers: handlers,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (ws *WsServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", ws.handleUpgrade)
	ws.httpSrv = &http.Server{
		Addr:    ws.listener,
		Handler: mux,
	}

	log.Infof("websocket server listening on %s", ws.listener)
	err := ws.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (ws *WsServer) Stop(ctx context.Context) error {
	if ws.httpSrv == nil {
		return nil
	}
	return ws.httpSrv.Shutdown(ctx)
}

func (ws *WsServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("websocket upgrade: %v", err)
		return
	}
	go ws.serveConn(conn, r)
}

func (ws *WsServer) serveConn(conn *websocket.Conn, r *http.Request) {
	defer conn.Close()
	conn.SetReadLimit(maxMsgSize)

	// the upgrade request's context is canceled as soon as handleUpgrade
	// returns; handlers on this long-lived connection get their own
	// context, canceled when the connection is done
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warningf("websocket read: %v", err)
			}
			return
		}

		if !ratelimiter.AllowRequest(host) {
			ws.writeResponse(conn, "", errcode.SERVICE_CEILING, "rate limit exceeded")
			continue
		}

		request := make(map[string]interface{})
		if err := json.Unmarshal(data, &request); err != nil {
			ws.writeResponse(conn, "", errcode.INVALID_PARAMS, err.Error())
			continue
		}
		action, ok := request["Action"].(string)
		if !ok {
			ws.writeResponse(conn, "", errcode.INVALID_METHOD, "Action should be a string")
			continue
		}
		handler, ok := ws.handlers[action]
		if !ok {
			ws.writeResponse(conn, action, errcode.INVALID_METHOD, "unknown action")
			continue
		}

		params, _ := request["params"].(map[string]interface{})
		if params == nil {
			params = make(map[string]interface{})
		}

		response := handler.Handler(ws.serverer, params, ctx)
		code := response["error"].(errcode.ErrCode)
		ws.writeResponse(conn, action, code, response["resultOrData"])
	}
}

func (ws *WsServer) writeResponse(conn *websocket.Conn, action string, code errcode.ErrCode, resultOrData interface{}) {
	resp := map[string]interface{}{
		"Action": action,
		"Error":  code,
		"Desc":   errcode.ErrMessage[code],
	}
	if code == errcode.SUCCESS {
		resp["Result"] = resultOrData
	} else {
		resp["Data"] = resultOrData
	}
	data, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("websocket marshal response: %v", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warningf("websocket write: %v", err)
	}
}
