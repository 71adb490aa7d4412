// Package testutil builds Fiber apps and fakes for handler tests.
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	"configtree/internal/httpx/kit"
)

// NewApp creates a Fiber app with the standard error handler and applies
// the given mount functions to register selective routes.
func NewApp(mounts ...func(*fiber.App)) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: kit.ErrorHandler()})
	for _, m := range mounts {
		if m != nil {
			m(app)
		}
	}
	return app
}

// Envelope is the decoded response envelope, success or error.
type Envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
	Raw     []byte          `json:"-"`
}

// Call sends a JSON request and decodes the envelope. Non-JSON responses
// leave only Raw set.
func Call(t testing.TB, app *fiber.App, method, path, body string, headers ...string) (int, Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(res.Body)
	env := Envelope{Raw: raw}
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(raw, &env)
	}
	return res.StatusCode, env
}

// Recorder is an in-memory event publisher.
type Recorder struct {
	mu   sync.Mutex
	Keys []string
}

func (r *Recorder) Publish(_ context.Context, key string, _ []byte) error {
	r.mu.Lock()
	r.Keys = append(r.Keys, key)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }
