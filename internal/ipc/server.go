package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// requestReadTimeout bounds how long a client may take to send its request line.
const requestReadTimeout = 2 * time.Second

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until ctx is cancelled or the listener
// closes, then waits for in-flight requests.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			_ = json.NewEncoder(conn).Encode(serveConn(ctx, conn, handler))
		}()
	}
}

// serveConn reads one newline-terminated request and dispatches it.
func serveConn(ctx context.Context, conn net.Conn, handler Handler) Response {
	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{Error: fmt.Sprintf("read request: %v", err)}
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{Error: fmt.Sprintf("decode request: %v", err)}
	}
	if !Forwardable(req.Command) {
		return Response{Error: fmt.Sprintf("unsupported command %q", req.Command)}
	}

	return handler.Handle(ctx, req)
}
