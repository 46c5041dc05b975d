package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const httpTimeout = 10 * time.Second

func registerBuiltins(l *Local) {
	client := &http.Client{Timeout: httpTimeout}
	l.Register(Service{
		Name:        "http",
		Description: "Plain HTTP requests",
		Methods: []Method{
			{Name: "get", Description: "GET a URL", Params: []Param{
				{Name: "url", Type: "string", Required: true},
			}},
			{Name: "post", Description: "POST a JSON body to a URL", Params: []Param{
				{Name: "url", Type: "string", Required: true},
				{Name: "body", Type: "object"},
			}},
		},
	}, map[string]Handler{
		"get":  httpHandler(l, client, http.MethodGet),
		"post": httpHandler(l, client, http.MethodPost),
	})
	l.Register(Service{
		Name:        "log",
		Description: "Write to the engine log",
		Methods: []Method{
			{Name: "print", Description: "Log a message", Params: []Param{
				{Name: "message", Type: "string", Required: true},
			}},
		},
	}, map[string]Handler{
		"print": func(_ context.Context, inv Invocation) error {
			l.log.Info("log.print", "flow", inv.FlowID, "action", inv.Action.ID, "message", inv.Action.Args["message"], "run_args", inv.RunArgs)
			return nil
		},
	})
}

func httpHandler(l *Local, client *http.Client, method string) Handler {
	return func(ctx context.Context, inv Invocation) error {
		url, _ := inv.Action.Args["url"].(string)
		if url == "" {
			return fmt.Errorf("http.%s: url is required", method)
		}
		var body io.Reader
		if method == http.MethodPost {
			b, err := json.Marshal(inv.Action.Args["body"])
			if err != nil {
				return fmt.Errorf("marshal body: %w", err)
			}
			body = bytes.NewReader(b)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode >= 300 {
			return fmt.Errorf("http.%s %s: status %d", method, url, resp.StatusCode)
		}
		l.log.Info("http request done", "flow", inv.FlowID, "action", inv.Action.ID, "method", method, "url", url, "status", resp.StatusCode)
		return nil
	}
}
