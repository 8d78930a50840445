package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

// Client issues requests to the chat backend. It keeps the admin session
// cookie in a jar, sets no timeout and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the backend at baseURL.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return NewWithHTTPClient(baseURL, &http.Client{Jar: jar}), nil
}

// NewWithHTTPClient creates a client using hc as is.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

// BaseURL returns the backend origin the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// readOK reads the whole body and fails on non-2xx statuses.
func readOK(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: resp.Request.Method,
			Path:   resp.Request.URL.Path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}
	return data, nil
}

// Chat sends one chat turn. A handled backend error comes back as a
// Failure reply with a nil error.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/chat", req)
	if err != nil {
		return ChatReply{}, err
	}
	data, err := readOK(resp)
	if err != nil {
		return ChatReply{}, err
	}
	return decodeChatReply(data)
}

// Login posts the admin password and returns the raw response status.
// The caller decides which status grants access.
func (c *Client) Login(ctx context.Context, password string) (int, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/admin/login", map[string]string{"password": password})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// ListPersonas fetches the name to instructions mapping.
func (c *Client) ListPersonas(ctx context.Context) (map[string]string, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/admin/personas", nil)
	if err != nil {
		return nil, err
	}
	data, err := readOK(resp)
	if err != nil {
		return nil, err
	}
	personas := make(map[string]string)
	if err := json.Unmarshal(data, &personas); err != nil {
		return nil, fmt.Errorf("decoding personas: %w", err)
	}
	return personas, nil
}

// SavePersona upserts a persona. The response body is ignored.
func (c *Client) SavePersona(ctx context.Context, name, instructions string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/admin/personas", map[string]string{
		"name":         name,
		"instructions": instructions,
	})
	if err != nil {
		return err
	}
	_, err = readOK(resp)
	return err
}

func (c *Client) DeletePersona(ctx context.Context, name string) error {
	resp, err := c.doJSON(ctx, http.MethodDelete, "/admin/personas/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}
	_, err = readOK(resp)
	return err
}

// ListDocuments fetches the corpus.
func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/admin/faqs", nil)
	if err != nil {
		return nil, err
	}
	data, err := readOK(resp)
	if err != nil {
		return nil, err
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decoding documents: %w", err)
	}
	return docs, nil
}

// UploadDocuments sends all files in one multipart request with the chunk
// size in the X-Chunk-Size header. A plain-text success body yields no
// records.
func (c *Client) UploadDocuments(ctx context.Context, files []UploadFile, chunkSize int) ([]Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("creating form part for %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, fmt.Errorf("writing form part for %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/admin/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if chunkSize > 0 {
		req.Header.Set("X-Chunk-Size", strconv.Itoa(chunkSize))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST /admin/upload: %w", err)
	}
	data, err := readOK(resp)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil
	}
	var docs []Document
	if err := json.Unmarshal(trimmed, &docs); err != nil {
		return nil, fmt.Errorf("decoding uploaded documents: %w", err)
	}
	return docs, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	resp, err := c.doJSON(ctx, http.MethodDelete, "/admin/faqs/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	_, err = readOK(resp)
	return err
}

// ClearHistory clears the server-side conversation history.
func (c *Client) ClearHistory(ctx context.Context) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/admin/clear", nil)
	if err != nil {
		return err
	}
	_, err = readOK(resp)
	return err
}
