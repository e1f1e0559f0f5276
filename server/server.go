// Package server implements the listener/session/queue core: one
// listener per configured wire dialect, one session per accepted
// connection, and a single in-memory work queue feeding one dispatch
// path (serial by default, or one goroutine per item under
// threaded_digest).
//
// Grounded on the teacher's internal/broker/service.go
// (github.com/tenzoki/agen/cellorg): the accept-loop-plus-goroutine-per-
// connection shape and the connections-map-plus-RWMutex session registry
// both come from Service.Start/handleConnection, generalized from its
// per-connection synchronous JSON-RPC loop to this framework's
// queue-mediated, out-of-band response model.
package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/wgnet/clacks/adapter"
	"github.com/wgnet/clacks/command"
	"github.com/wgnet/clacks/handler"
	"github.com/wgnet/clacks/iface"
	"github.com/wgnet/clacks/internal/config"
	"github.com/wgnet/clacks/internal/logging"
	"github.com/wgnet/clacks/marshaller"
	"github.com/wgnet/clacks/message"
)

// queueItem is one dequeued unit of work: a decoded packet plus the
// session it arrived on, carried through digest to response delivery.
type queueItem struct {
	sess      *session
	txid      message.TxID
	header    message.Header
	payload   marshaller.Payload
	keepAlive bool
}

// Server owns every listener, the command registry, the adapter
// pipeline, and the single work queue for one clacks deployment.
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *command.Registry
	pipeline *adapter.Pipeline
	handlers handler.Registry
	metrics  *Metrics
	admin    *adminServer

	queue chan *queueItem

	mu         sync.RWMutex
	listeners  []net.Listener
	sessions   map[string]*session
	interfaces []string

	cancel context.CancelFunc
	wg     sync.WaitGroup

	profiling *adapter.Profiling
}

// New builds a Server from cfg and logger, registering the standard
// interface plus any optional ones cfg enables, and wiring the stock
// adapters cfg.Adapters leaves turned on.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: command.NewRegistry(),
		sessions: make(map[string]*session),
		queue:    make(chan *queueItem, cfg.QueueDepth),
		metrics:  NewMetrics(),
	}

	s.handlers = buildHandlers(cfg)

	var adapters []adapter.Adapter
	if cfg.Adapters.DeprecationWarningsEnabled() {
		adapters = append(adapters, adapter.NewDeprecationWarnings())
	}
	if cfg.Adapters.GNUTerryPratchettEnabled() {
		adapters = append(adapters, adapter.NewGNUTerryPratchett())
	}
	if cfg.Adapters.HeaderAsKwargEnabled() {
		adapters = append(adapters, adapter.NewHeaderAsKwarg())
	}
	if cfg.Adapters.StatusCodeEnabled() {
		adapters = append(adapters, adapter.NewStatusCode())
	}
	if cfg.Adapters.ProfilingEnabled() {
		s.profiling = adapter.NewProfiling()
		adapters = append(adapters, s.profiling)
	}
	s.pipeline = adapter.NewPipeline(logger, adapters...)

	ifaces := []*iface.Interface{
		iface.Standard(s),
		iface.Logging(logger.SetLevel, logger.GetLevel),
	}
	if cfg.FileIORoot != "" {
		ifaces = append(ifaces, iface.FileIO(cfg.FileIORoot))
	}
	if s.profiling != nil {
		ifaces = append(ifaces, iface.Profiling(func(txid string) (map[string]any, bool) {
			return s.profiling.Summary(message.TxID(txid))
		}))
	}
	for _, i := range ifaces {
		if err := i.Register(s.registry); err != nil {
			return nil, fmt.Errorf("register interface %s: %w", i.Name, err)
		}
		s.interfaces = append(s.interfaces, i.Name)
	}

	s.admin = newAdminServer(cfg.Admin, s.metrics)

	return s, nil
}

// buildHandlers wires one Handler per reference dialect, sharing a
// single Config derived from cfg's timeout/size settings.
func buildHandlers(cfg *config.Config) handler.Registry {
	hcfg := handler.Config{
		ReadTimeout:    cfg.ReadTimeout(),
		IdleTimeout:    cfg.IdleTimeout(),
		ChunkSize:      cfg.ChunkSize,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
	return handler.NewRegistry(
		handler.New("simple", handler.NewSimpleHeaderCodec(), marshaller.NewSimple(), hcfg),
		handler.New("json", handler.NewJSONHeaderCodec(), marshaller.NewJSON(), hcfg),
		// The XML dialect frames its header as XML but still marshals the
		// body as JSON: the specification does not require a structured
		// XML body schema, and encoding/xml has no idiomatic way to round-
		// trip an arbitrary args/kwargs payload the way the flat header
		// tree does. See DESIGN.md.
		handler.New("xml", handler.NewXMLHeaderCodec(), marshaller.NewJSON(), hcfg),
	)
}

// Registry returns the server's command registry, satisfying iface.Host.
func (s *Server) Registry() *command.Registry { return s.registry }

// InterfaceNames returns every registered Interface bundle's name,
// satisfying iface.Host.
func (s *Server) InterfaceNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.interfaces))
	copy(out, s.interfaces)
	return out
}

// DisconnectClient closes the session for the given peer address, if
// one is currently open, satisfying iface.Host.
func (s *Server) DisconnectClient(address string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[address]
	if ok {
		delete(s.sessions, address)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	sess.close()
	return true
}

// Shutdown stops accepting new connections and closes every open
// session, satisfying iface.Host.
func (s *Server) Shutdown() {
	s.mu.Lock()
	for _, l := range s.listeners {
		l.Close()
	}
	for _, sess := range s.sessions {
		sess.close()
	}
	s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Run opens every configured listener, starts the queue worker and the
// admin HTTP surface, and blocks until ctx is cancelled or Shutdown is
// called.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	for _, l := range s.cfg.Listeners {
		h, ok := s.handlers.Get(l.Dialect)
		if !ok {
			return fmt.Errorf("server: no handler registered for dialect %q", l.Dialect)
		}
		ln, err := net.Listen("tcp", l.Address)
		if err != nil {
			return fmt.Errorf("server: listen on %s: %w", l.Address, err)
		}
		s.mu.Lock()
		s.listeners = append(s.listeners, ln)
		s.mu.Unlock()
		s.logger.Infof("listening on %s (%s)", l.Address, l.Dialect)

		s.wg.Add(1)
		go s.acceptLoop(ctx, ln, h)
	}

	if s.admin.enabled() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.admin.run(ctx); err != nil {
				s.logger.Errorf("admin server: %v", err)
			}
		}()
	}

	s.wg.Add(1)
	go s.runQueue(ctx)

	<-ctx.Done()
	s.Shutdown()
	s.wg.Wait()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, h *handler.Handler) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorf("accept on %s: %v", ln.Addr(), err)
			continue
		}
		s.metrics.ConnectionOpened(h.Name())
		sess := newSession(conn, h)
		s.addSession(sess)
		s.wg.Add(1)
		go s.serveConn(ctx, sess)
	}
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	s.sessions[sess.addr] = sess
	s.mu.Unlock()
}

func (s *Server) removeSession(sess *session) {
	s.mu.Lock()
	if s.sessions[sess.addr] == sess {
		delete(s.sessions, sess.addr)
	}
	s.mu.Unlock()
}

// serveConn runs one connection's receive loop: every fully-framed
// packet is handed to the queue, in arrival order, and the loop exits
// (closing the connection) on any read error — a dead socket, an idle
// timeout, or a peer-initiated close. After a non-keep-alive packet it
// stops reading and leaves closing to process, once the response has
// been written.
func (s *Server) serveConn(ctx context.Context, sess *session) {
	defer s.wg.Done()
	defer s.removeSession(sess)
	defer s.metrics.ConnectionClosed(sess.handler.Name())

	r := bufio.NewReader(sess.conn)
	for {
		pkt, err := sess.handler.ReceiveOne(ctx, sess.conn, r, s.cfg.IdleTimeout(), s.pipeline)
		if err != nil {
			sess.close()
			return
		}

		s.pipeline.FireServerPreAddToQueue(ctx, pkt.TxID, pkt.Header)
		s.metrics.QueueDepthSet(len(s.queue))

		item := &queueItem{
			sess:      sess,
			txid:      pkt.TxID,
			header:    pkt.Header,
			payload:   pkt.Payload,
			keepAlive: pkt.Header.KeepAlive(),
		}
		select {
		case s.queue <- item:
		case <-ctx.Done():
			sess.close()
			return
		}

		if !item.keepAlive {
			// One more packet could still be pipelined ahead of this
			// one's response on a keep-alive connection, but a
			// non-keep-alive question is always the last this
			// connection will send; stop reading rather than block on
			// a peer that never writes again.
			return
		}
	}
}

func (s *Server) runQueue(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case item := <-s.queue:
			s.metrics.QueueDepthSet(len(s.queue))
			if s.cfg.ThreadedDigest {
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					s.process(ctx, item)
				}()
			} else {
				s.process(ctx, item)
			}
		case <-ctx.Done():
			return
		}
	}
}

// process runs the dispatch protocol for one queued item and writes
// its response back on the originating connection. Under
// threaded_digest, two items from the same connection can finish this
// step out of order; session.writeMu keeps their bytes from
// interleaving, but the specification's in-order-response guarantee is
// explicitly not held in that mode.
func (s *Server) process(ctx context.Context, item *queueItem) {
	start := time.Now()
	s.pipeline.FireServerPostRemoveFromQueue(ctx, item.txid, item.header)
	response := digest(ctx, s.registry, s.pipeline, s.logger, item.txid, item.header, item.payload)
	s.metrics.CommandDispatched(time.Since(start), response.Code)

	payload := responseToPayload(response)

	item.sess.writeMu.Lock()
	err := item.sess.handler.SendOne(ctx, item.sess.conn, item.txid, response.Header, payload, item.keepAlive, s.pipeline)
	item.sess.writeMu.Unlock()
	if err != nil {
		s.logger.Errorf("send response to %s: %v", item.sess.addr, err)
	}

	if !item.keepAlive {
		item.sess.close()
	}
}
