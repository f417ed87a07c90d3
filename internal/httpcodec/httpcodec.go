// Package httpcodec implements the minimal HTTP/1.1 request parser and
// response writer the acceptor/worker-pool core speaks directly over
// net.Conn, without going through net/http.
package httpcodec

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"

	"ott-server/internal/apperr"
)

const (
	initialBufferSize = 8 * 1024
	maxBufferSize     = 8 * 1024 * 1024
	maxPathLen        = 512
	maxQueryLen       = 512
	minHeaderCapacity = 32
	copyBufferSize    = 8 * 1024
)

// Request is a parsed HTTP/1.1 request.
type Request struct {
	Method  string
	Path    string
	Query   string
	Version string
	Headers Header
	Body    []byte
}

// Header is a case-insensitive multi-value header map.
type Header map[string][]string

// Get returns the first value for key, or "" if absent.
func (h Header) Get(key string) string {
	vs := h[strings.ToLower(key)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Set replaces any existing values for key.
func (h Header) Set(key, value string) {
	h[strings.ToLower(key)] = []string{value}
}

// Add appends value to key's value list.
func (h Header) Add(key, value string) {
	k := strings.ToLower(key)
	h[k] = append(h[k], value)
}

// ReadRequest parses one HTTP/1.1 request from conn: it grows an internal
// buffer from 8KiB up to an 8MiB cap while scanning for the header
// terminator, then reads exactly Content-Length bytes of body, if any.
func ReadRequest(conn net.Conn) (*Request, error) {
	r := bufio.NewReaderSize(conn, initialBufferSize)

	headerBytes, err := readUntilHeadersEnd(r)
	if err != nil {
		return nil, err
	}

	req, err := parseHeadBlock(headerBytes)
	if err != nil {
		return nil, err
	}

	if cl := req.Headers.Get("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, apperr.BadRequestf("invalid Content-Length")
		}
		if n > maxBufferSize {
			return nil, apperr.BadRequestf("request body too large")
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, apperr.BadRequestf("truncated request body")
		}
		req.Body = body
	}

	return req, nil
}

// readUntilHeadersEnd grows a buffer one byte at a time (buffered by r's
// own internal buffer, so this is not as slow as it looks) until it
// observes "\r\n\r\n", leaving any bytes after the terminator (the start
// of the body, if any) unread on r for the caller to consume next. This
// is what lets the initial 8KiB buffer grow toward the 8MiB cap without
// ever reading past the header/body boundary.
func readUntilHeadersEnd(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, apperr.BadRequestf("connection closed before headers completed")
		}
		buf = append(buf, b)
		if len(buf) > maxBufferSize {
			return nil, apperr.BadRequestf("request headers too large")
		}
		if hasHeaderTerminator(buf) {
			return buf[:len(buf)-4], nil
		}
	}
}

func hasHeaderTerminator(buf []byte) bool {
	return len(buf) >= 4 && string(buf[len(buf)-4:]) == "\r\n\r\n"
}

func parseHeadBlock(headBlock []byte) (*Request, error) {
	lines := strings.Split(string(headBlock), "\r\n")
	if len(lines) < 1 || lines[0] == "" {
		return nil, apperr.BadRequestf("empty request line")
	}

	requestLine := strings.SplitN(lines[0], " ", 3)
	if len(requestLine) != 3 {
		return nil, apperr.BadRequestf("malformed request line")
	}

	target := requestLine[1]
	path, query := splitTarget(target)
	if len(path) > maxPathLen {
		return nil, apperr.BadRequestf("request path too long")
	}
	if len(query) > maxQueryLen {
		return nil, apperr.BadRequestf("request query too long")
	}

	headers := make(Header, minHeaderCapacity)
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		headers.Add(name, value)
	}

	return &Request{
		Method:  requestLine[0],
		Path:    path,
		Query:   query,
		Version: requestLine[2],
		Headers: headers,
	}, nil
}

// splitTarget splits a request target on its first "?", with no URL
// decoding performed.
func splitTarget(target string) (path, query string) {
	if idx := strings.IndexByte(target, '?'); idx >= 0 {
		return target[:idx], target[idx+1:]
	}
	return target, ""
}

// reasonPhrases maps well-known status codes to their reason phrase.
var reasonPhrases = map[int]string{
	200: "OK",
	204: "No Content",
	206: "Partial Content",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	409: "Conflict",
	416: "Range Not Satisfiable",
	500: "Internal Server Error",
}

func reasonPhrase(status int) string {
	if p, ok := reasonPhrases[status]; ok {
		return p
	}
	return "Status"
}

// WriteResponse writes a complete HTTP/1.1 response with a Connection:
// close header and the supplied body. Any write failure is returned so
// the caller can abort and close the socket.
func WriteResponse(conn net.Conn, status int, headers Header, body []byte) error {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, reasonPhrase(status))
	b.WriteString("Connection: close\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))

	for _, key := range sortedKeys(headers) {
		for _, v := range headers[key] {
			fmt.Fprintf(&b, "%s: %s\r\n", canonicalHeaderName(key), v)
		}
	}
	b.WriteString("\r\n")

	if _, err := io.WriteString(conn, b.String()); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := conn.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// WriteFileResponse writes response headers followed by exactly size
// bytes of src, preferring the connection's io.ReaderFrom optimization
// (kernel-assisted copy, e.g. sendfile on Linux TCP sockets) and falling
// back to an 8KiB userspace copy loop otherwise.
func WriteFileResponse(conn net.Conn, status int, headers Header, src io.Reader, size int64) error {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, reasonPhrase(status))
	b.WriteString("Connection: close\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", size)
	for _, key := range sortedKeys(headers) {
		for _, v := range headers[key] {
			fmt.Fprintf(&b, "%s: %s\r\n", canonicalHeaderName(key), v)
		}
	}
	b.WriteString("\r\n")

	if _, err := io.WriteString(conn, b.String()); err != nil {
		return err
	}

	if rf, ok := conn.(io.ReaderFrom); ok {
		if _, err := rf.ReadFrom(io.LimitReader(src, size)); err != nil {
			return err
		}
		return nil
	}

	buf := make([]byte, copyBufferSize)
	_, err := io.CopyBuffer(conn, io.LimitReader(src, size), buf)
	return err
}

func canonicalHeaderName(lower string) string {
	parts := strings.Split(lower, "-")
	for i, p := range parts {
		if len(p) == 0 {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "-")
}

func sortedKeys(h Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
