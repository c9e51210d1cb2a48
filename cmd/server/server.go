package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/tesseradb/tessera"
	"github.com/tesseradb/tessera/core"
	"github.com/tesseradb/tessera/db"
)

// Server is a TCP SQL server that exposes the Tessera engine.
// Clients send one JSON-free SQL statement per line and receive a JSON
// response per line.
type Server struct {
	listener net.Listener
	instance *tessera.Instance
	identity core.Identity
	auth     AuthConfig
	mu       sync.Mutex
	engine   *db.Engine
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewServer creates a new SQL server over the given instance.
func NewServer(instance *tessera.Instance, identity core.Identity, auth AuthConfig) *Server {
	return &Server{
		instance: instance,
		identity: identity,
		auth:     auth,
		engine:   instance.Engine(),
		done:     make(chan struct{}),
	}
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	log.Printf("SQL server listening on %s", listener.Addr())

	go s.acceptLoop()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				log.Printf("Accept error: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	log.Printf("Client connected: %s", conn.RemoteAddr())

	reader := bufio.NewReader(conn)
	state := &ConnectionState{}

	for {
		select {
		case <-s.done:
			return
		default:
		}

		// One statement per line
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("Read error from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}

		// Clients may wrap the statement in a JSON request envelope.
		if strings.HasPrefix(query, "{") {
			req, err := DecodeRequest([]byte(query))
			if err != nil {
				data, _ := EncodeResponse(Response{Success: false, Error: "malformed request: " + err.Error()})
				if _, err := conn.Write(data); err != nil {
					return
				}
				continue
			}
			query = strings.TrimSpace(req.Query)
			if query == "" {
				continue
			}
		}

		lower := strings.ToLower(query)
		if lower == "quit" || lower == "exit" {
			log.Printf("Client disconnected: %s", conn.RemoteAddr())
			return
		}

		var response Response
		switch {
		case strings.HasPrefix(strings.ToUpper(query), "AUTH "):
			response = s.handleAuth(query, state)
		case s.auth.Enabled && !state.IsAuthenticated():
			response = Response{
				Success: false,
				Error:   "authentication required: send AUTH JWT <token>",
			}
		case strings.HasPrefix(strings.ToUpper(query), "SAVE"):
			response = s.handleSave(query, state)
		default:
			response = s.executeQuery(query)
		}

		data, err := EncodeResponse(response)
		if err != nil {
			log.Printf("Failed to encode response: %v", err)
			continue
		}

		if _, err := conn.Write(data); err != nil {
			log.Printf("Write error to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

// handleSave commits the current state. The commit is attributed to the
// connection's authenticated identity when there is one.
func (s *Server) handleSave(query string, state *ConnectionState) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	message := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(query, "SAVE"), "save"))
	if message == "" {
		message = "server snapshot"
	}

	identity := s.identity
	if state.Identity() != nil {
		identity = *state.Identity()
	}

	commit, err := s.instance.Save(identity, message)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}

	data, _ := json.Marshal(AckResponse{Message: fmt.Sprintf("saved commit %s", commit.ID)})
	return Response{
		Success: true,
		Type:    "ack",
		Result:  data,
	}
}

func (s *Server) executeQuery(query string) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.engine.Execute(query)
	if err != nil {
		return Response{
			Success: false,
			Error:   err.Error(),
		}
	}

	switch r := result.(type) {
	case db.QueryResult:
		qr := QueryResponse{
			Columns: r.Columns,
			Data:    r.Data(),
			Rows:    len(r.Rows),
			TimeMs:  r.ExecutionTimeSec * 1000,
		}
		data, _ := json.Marshal(qr)
		return Response{
			Success: true,
			Type:    "query",
			Result:  data,
		}

	case db.ExecResult:
		er := ExecResponse{
			RowsAffected: r.RowsAffected,
			TimeMs:       r.ExecutionTimeSec * 1000,
		}
		data, _ := json.Marshal(er)
		return Response{
			Success: true,
			Type:    "exec",
			Result:  data,
		}

	case db.AckResult:
		ar := AckResponse{
			Message: r.Message,
			TimeMs:  r.ExecutionTimeSec * 1000,
		}
		data, _ := json.Marshal(ar)
		return Response{
			Success: true,
			Type:    "ack",
			Result:  data,
		}

	default:
		return Response{
			Success: true,
			Type:    "unknown",
		}
	}
}
