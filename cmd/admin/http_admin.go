package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// stateCmd prints the live snapshot or the notification feed of a running server.
func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	notes := fs.Bool("notifications", false, "print the notification feed instead of the snapshot")
	category := fs.String("category", "", "notification category filter")
	_ = fs.Parse(args)

	u := stateURL(*baseURL, *notes, *category)
	status, body, err := get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	fmt.Println(body)
	if status/100 != 2 {
		os.Exit(1)
	}
}

func stateURL(base string, notes bool, category string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if !notes {
		return base + "/v1/state"
	}
	u := base + "/v1/notifications"
	if c := strings.TrimSpace(category); c != "" {
		u += "?" + url.Values{"category": {c}}.Encode()
	}
	return u
}

func get(u string) (int, string, error) {
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b), err
}
