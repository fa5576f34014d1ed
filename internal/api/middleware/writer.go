package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

// statusRecorder wraps http.ResponseWriter to capture the status code and
// body size. It forwards Hijack and Flush so websocket upgrades and
// streamed responses keep working behind the middleware chain.
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Hijack hands the connection to a websocket upgrader. The handshake is
// recorded as 101 Switching Protocols.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	conn, brw, err := h.Hijack()
	if err == nil && !rw.wroteHeader {
		rw.statusCode = http.StatusSwitchingProtocols
		rw.wroteHeader = true
	}
	return conn, brw, err
}

func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap supports http.ResponseController.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
