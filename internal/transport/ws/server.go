package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tilecraft.ai/internal/engine"
	"tilecraft.ai/internal/protocol"
)

// Engine is what the socket needs from *engine.Engine.
type Engine interface {
	CatalogMsg() protocol.CatalogMsg
	ResolveMsg(source string, m protocol.ResolveMsg) (protocol.ResolvedMsg, error)
	MatchMsg(m protocol.MatchMsg) (protocol.MatchResultMsg, error)
	ErrorMsg(requestID string, err error) protocol.ErrorMsg
}

type Options struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
	OutQueue        int
}

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 16 << 20
	}
	if o.OutQueue <= 0 {
		o.OutQueue = 8
	}
	return o
}

type Server struct {
	eng  Engine
	log  *log.Logger
	opts Options

	upgrader websocket.Upgrader
}

func NewServer(eng Engine, logger *log.Logger, opts Options) *Server {
	return &Server{
		eng:  eng,
		log:  logger,
		opts: opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Handler upgrades the request and serves RESOLVE and MATCH messages until
// the client goes away. The first frame sent is the CATALOG message; replies
// follow request order.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(s.opts.MaxMessageBytes)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, s.opts.OutQueue)
		writerDone := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		send := func(v any) bool {
			b, err := json.Marshal(v)
			if err != nil {
				s.log.Printf("ws: encode %T: %v", v, err)
				return false
			}
			select {
			case out <- b:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(s.eng.CatalogMsg()) {
			return
		}
		s.log.Printf("ws: connected remote=%s", r.RemoteAddr)

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if !send(s.handle(msg)) {
				break
			}
		}

		close(out)
		<-writerDone
		s.log.Printf("ws: disconnected remote=%s", r.RemoteAddr)
	}
}

func (s *Server) handle(msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return s.eng.ErrorMsg("", engine.BadRequest("bad json: %v", err))
	}
	if base.ProtocolVersion != "" && base.ProtocolVersion != protocol.Version {
		return s.eng.ErrorMsg(base.RequestID, engine.BadRequest("unsupported protocol_version %q", base.ProtocolVersion))
	}

	switch base.Type {
	case protocol.TypeResolve:
		var m protocol.ResolveMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return s.eng.ErrorMsg(base.RequestID, engine.BadRequest("bad RESOLVE: %v", err))
		}
		res, err := s.eng.ResolveMsg("ws", m)
		if err != nil {
			return s.eng.ErrorMsg(m.RequestID, err)
		}
		return res

	case protocol.TypeMatch:
		var m protocol.MatchMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return s.eng.ErrorMsg(base.RequestID, engine.BadRequest("bad MATCH: %v", err))
		}
		res, err := s.eng.MatchMsg(m)
		if err != nil {
			return s.eng.ErrorMsg(m.RequestID, err)
		}
		return res

	default:
		return s.eng.ErrorMsg(base.RequestID, engine.BadRequest("unknown message type %q", base.Type))
	}
}
