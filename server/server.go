// Package server exposes the pins and channels of a node over TCP.
//
// Each connection carries one JSON action and gets back at most one JSON
// response. Connections are handled on a fixed pool of workers; each runs
// parse, validate, dispatch, persist and respond to completion before taking
// the next connection. Malformed and invalid actions are logged and the
// connection is closed without a response.
package server

import (
	"context"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/barnybug/pinserver/config"
	"github.com/barnybug/pinserver/protocol"
	"github.com/barnybug/pinserver/pubsub"
	"github.com/barnybug/pinserver/resource"
	"github.com/barnybug/pinserver/state"
	"github.com/pkg/errors"
)

const (
	msgUnmatched = "could not match command to handler"
	msgFault     = "error handling command"
)

func SetupLogging() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.SetOutput(os.Stdout)
}

type Server struct {
	Addr        string
	Workers     int
	Backlog     int
	ReadTimeout time.Duration
	MaxMessage  int

	reg        *resource.Registry
	handlers   *Handlers
	validator  *Validator
	dispatcher *Dispatcher
	store      *state.Store
	publisher  pubsub.Publisher
}

// New builds a server over the registry. The state file is conf.State; a nil
// publisher discards events.
func New(conf *config.Config, reg *resource.Registry, publisher pubsub.Publisher) *Server {
	if publisher == nil {
		publisher = pubsub.Discard{}
	}
	handlers := NewHandlers(reg)
	dispatcher := NewDispatcher()
	handlers.Register(dispatcher)
	if conf.Default_Handler == "echo" {
		dispatcher.SetDefault(Echo)
	}
	return &Server{
		Addr:        conf.Listen,
		Workers:     conf.Workers,
		Backlog:     conf.Backlog,
		ReadTimeout: conf.Read_Timeout.Duration,
		MaxMessage:  conf.Max_Message,
		reg:         reg,
		handlers:    handlers,
		validator:   NewValidator(reg, conf.Commands),
		dispatcher:  dispatcher,
		store:       state.NewStore(conf.State, handlers.ListPins),
		publisher:   publisher,
	}
}

func (self *Server) Handlers() *Handlers {
	return self.handlers
}

// Restore drives every pin to its persisted value, or 0 when the snapshot has
// none. Ids in the snapshot which are not configured pins are ignored.
func (self *Server) Restore(st *state.State) {
	values := st.Values()
	for id := range values {
		if !self.reg.Has(resource.Pin, id) {
			log.Printf("Warning: state has unconfigured pin %d, ignoring", id)
		}
	}
	for _, id := range self.reg.IDs(resource.Pin) {
		value := values[id]
		if _, changed, _ := self.handlers.SetPin(id, value); !changed {
			log.Printf("Warning: could not restore pin %d to %v", id, value)
		}
	}
}

// Load the state file and restore pins from it.
func (self *Server) Load() {
	st := state.Load(self.store.Path())
	if st.Timestamp != 0 {
		log.Printf("Restoring state saved at %s", st.Time().Format(time.RFC3339))
	}
	self.Restore(st)
}

// ListenAndServe listens on Addr and serves until ctx is done.
func (self *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", self.Addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	log.Printf("Listening at %s", ln.Addr())
	return self.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, or accepting fails. The
// listener is closed on return, after queued connections have been handled.
func (self *Server) Serve(ctx context.Context, ln net.Listener) error {
	queue := make(chan net.Conn, self.Backlog)
	var wg sync.WaitGroup
	for i := 0; i < self.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for conn := range queue {
				self.handle(conn)
			}
		}()
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		ln.Close()
	}()

	var err error
	for {
		var conn net.Conn
		conn, err = ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				err = nil
				break
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				log.Println("Warning: accept:", err)
				time.Sleep(10 * time.Millisecond)
				continue
			}
			err = errors.Wrap(err, "accept")
			break
		}
		select {
		case queue <- conn:
		default:
			log.Println("Warning: all workers busy, dropping connection from", conn.RemoteAddr())
			conn.Close()
		}
	}

	close(stop)
	close(queue)
	wg.Wait()
	return err
}

// handle runs the whole pipeline for one connection, closing it on every path.
func (self *Server) handle(conn net.Conn) {
	defer conn.Close()

	if self.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(self.ReadTimeout))
	}
	action, err := protocol.ReadAction(conn, self.MaxMessage)
	if err == io.EOF {
		return
	}
	if err != nil {
		log.Printf("Warning: error reading action from %s: %s", conn.RemoteAddr(), err)
		return
	}
	log.Printf("Received %s %v", action.Type, action.Params)

	if verdict := self.validator.Validate(action); !verdict.Ok {
		log.Printf("Warning: invalid command %q: %s", action.Type, verdict.Reason)
		return
	}

	resp := self.Dispatch(action)
	log.Printf("Responding to %s: ok=%v", action.Type, resp.Ok)

	if self.ReadTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(self.ReadTimeout))
	}
	if err := protocol.WriteMessage(conn, resp); err != nil {
		log.Printf("Warning: writing response to %s: %s", conn.RemoteAddr(), err)
		return
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
	}
}

// Dispatch an action that has passed validation, persisting state if it
// changed a pin. Persistence and publish failures are logged only.
func (self *Server) Dispatch(action *protocol.Action) *protocol.Response {
	h, err := self.dispatcher.Match(action.Type)
	if err != nil {
		log.Printf("Error: %s", err)
		return protocol.Failure(msgUnmatched)
	}

	result, err := call(h, action)
	if err != nil {
		log.Printf("Error handling command %q: %s", action.Type, err)
		return protocol.Failure(msgFault)
	}

	if result.Changed != nil {
		if err := self.store.Save(); err != nil {
			log.Printf("Error persisting state after %s: %s", action.Type, err)
		}
		self.publish(result.Changed)
	}
	return protocol.Success(result.Data)
}

func (self *Server) publish(change *Change) {
	name := ""
	if r, err := self.reg.Get(resource.Pin, change.ID); err == nil {
		name = r.Name
	}
	ev := pubsub.NewPinEvent(change.ID, name, change.Value)
	if err := self.publisher.Emit(ev); err != nil {
		log.Printf("Warning: publishing to %s: %s", self.publisher.ID(), err)
	}
}

// call a handler, turning a panic into an error.
func call(h Handler, action *protocol.Action) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	result, err = h(action)
	if err == nil && result == nil {
		err = errors.New("handler returned no result")
	}
	return
}
