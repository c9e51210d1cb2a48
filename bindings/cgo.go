// Package main builds Tessera as a C shared library for embedding in
// other language runtimes. Responses mirror the TCP server protocol.
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"encoding/json"
	"sync"
	"unsafe"

	"github.com/tesseradb/tessera"
	"github.com/tesseradb/tessera/core"
	"github.com/tesseradb/tessera/db"
)

// Handle represents an open database instance
type Handle struct {
	instance *tessera.Instance
	engine   *db.Engine
}

var (
	handlesMu  sync.Mutex
	handles    = make(map[int]*Handle)
	nextHandle = 1
)

// Response mirrors the server protocol for consistency
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type QueryResponse struct {
	Columns []string   `json:"columns"`
	Data    [][]string `json:"data"`
	Rows    int        `json:"rows"`
	TimeMs  float64    `json:"time_ms"`
}

type ExecResponse struct {
	RowsAffected int     `json:"rows_affected"`
	TimeMs       float64 `json:"time_ms"`
}

type AckResponse struct {
	Message string  `json:"message"`
	TimeMs  float64 `json:"time_ms"`
}

func storeHandle(instance *tessera.Instance) C.int {
	handlesMu.Lock()
	defer handlesMu.Unlock()

	handle := nextHandle
	nextHandle++
	handles[handle] = &Handle{
		instance: instance,
		engine:   instance.Engine(),
	}
	return C.int(handle)
}

func getHandle(handle C.int) (*Handle, bool) {
	handlesMu.Lock()
	defer handlesMu.Unlock()

	h, ok := handles[int(handle)]
	return h, ok
}

//export tessera_open_memory
func tessera_open_memory() C.int {
	instance, err := tessera.OpenMemory()
	if err != nil {
		return -1
	}
	return storeHandle(instance)
}

//export tessera_open_file
func tessera_open_file(path *C.char) C.int {
	instance, err := tessera.OpenFile(C.GoString(path))
	if err != nil {
		return -1
	}
	return storeHandle(instance)
}

//export tessera_close
func tessera_close(handle C.int) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	delete(handles, int(handle))
}

//export tessera_execute
func tessera_execute(handle C.int, query *C.char) *C.char {
	h, ok := getHandle(handle)
	if !ok {
		return makeErrorResponse("invalid handle")
	}

	result, err := h.engine.Execute(C.GoString(query))
	if err != nil {
		return makeErrorResponse(err.Error())
	}

	var resp Response

	switch r := result.(type) {
	case db.QueryResult:
		qr := QueryResponse{
			Columns: r.Columns,
			Data:    r.Data(),
			Rows:    len(r.Rows),
			TimeMs:  r.ExecutionTimeSec * 1000,
		}
		data, _ := json.Marshal(qr)
		resp = Response{
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
		resp = Response{
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
		resp = Response{
			Success: true,
			Type:    "ack",
			Result:  data,
		}

	default:
		resp = Response{
			Success: true,
			Type:    "unknown",
		}
	}

	jsonData, _ := json.Marshal(resp)
	return C.CString(string(jsonData))
}

//export tessera_save
func tessera_save(handle C.int, name, email, message *C.char) *C.char {
	h, ok := getHandle(handle)
	if !ok {
		return makeErrorResponse("invalid handle")
	}

	identity := core.Identity{
		Name:  C.GoString(name),
		Email: C.GoString(email),
	}
	commit, err := h.instance.Save(identity, C.GoString(message))
	if err != nil {
		return makeErrorResponse(err.Error())
	}

	data, _ := json.Marshal(AckResponse{Message: commit.ID})
	jsonData, _ := json.Marshal(Response{
		Success: true,
		Type:    "ack",
		Result:  data,
	})
	return C.CString(string(jsonData))
}

//export tessera_free
func tessera_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func makeErrorResponse(msg string) *C.char {
	resp := Response{
		Success: false,
		Error:   msg,
	}
	jsonData, _ := json.Marshal(resp)
	return C.CString(string(jsonData))
}

func main() {}
