// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package challenge_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloudeng.io/acmecli/challenge"
	"cloudeng.io/logging"
	"cloudeng.io/logging/ctxlog"
)

func testContext(t *testing.T) context.Context {
	logger := slog.New(slog.NewJSONHandler(logging.NewJSONFormatter(os.Stderr, "", "  "), nil))
	return ctxlog.WithLogger(t.Context(), logger)
}

func TestHTTP01Dir(t *testing.T) {
	ctx := testContext(t)
	root := t.TempDir()
	solver := challenge.HTTP01Dir{Root: root}

	if got, want := solver.Type(), "http-01"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if challenge.IsSequential(solver) {
		t.Errorf("http-01 dir solver should not be sequential")
	}

	if err := solver.Present(ctx, "example.com", "tok123", "tok123.keyauth"); err != nil {
		t.Fatalf("Present: %v", err)
	}
	filename := filepath.Join(root, ".well-known", "acme-challenge", "tok123")
	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("challenge file not written: %v", err)
	}
	if got, want := string(data), "tok123.keyauth"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	if err := solver.CleanUp(ctx, "example.com", "tok123"); err != nil {
		t.Fatalf("CleanUp: %v", err)
	}
	if _, err := os.Stat(filename); !os.IsNotExist(err) {
		t.Errorf("challenge file still present after CleanUp")
	}
	// CleanUp of an absent token is not an error.
	if err := solver.CleanUp(ctx, "example.com", "tok123"); err != nil {
		t.Errorf("CleanUp: %v", err)
	}
}

func TestHTTP01Server(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()

	srv := challenge.NewHTTP01Server("127.0.0.1:0")
	if err := srv.Present(ctx, "example.com", "tok", "resp"); err == nil {
		t.Fatal("expected an error presenting to a stopped server")
	}

	stop, err := srv.Start(ctx, time.Second)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		if err := stop(); err != nil {
			t.Errorf("stop: %v", err)
		}
	}()

	if err := srv.Present(ctx, "example.com", "tok123", "tok123.keyauth"); err != nil {
		t.Fatalf("Present: %v", err)
	}

	get := func(path string) (int, string) {
		resp, err := http.Get(fmt.Sprintf("http://%v%v", srv.Addr(), path)) //nolint:noctx
		if err != nil {
			t.Fatalf("get %v: %v", path, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read %v: %v", path, err)
		}
		return resp.StatusCode, string(body)
	}

	code, body := get(challenge.ACMEHTTP01Prefix + "tok123")
	if got, want := code, http.StatusOK; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := body, "tok123.keyauth"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	for _, path := range []string{
		challenge.ACMEHTTP01Prefix + "unknown",
		"/tok123",
		challenge.ACMEHTTP01Prefix + "tok123/extra",
	} {
		if code, _ := get(path); code != http.StatusNotFound {
			t.Errorf("%v: got %v, want %v", path, code, http.StatusNotFound)
		}
	}

	if err := srv.CleanUp(ctx, "example.com", "tok123"); err != nil {
		t.Fatalf("CleanUp: %v", err)
	}
	if code, _ := get(challenge.ACMEHTTP01Prefix + "tok123"); code != http.StatusNotFound {
		t.Errorf("got %v, want %v after CleanUp", code, http.StatusNotFound)
	}
}

func TestDNS01Prompt(t *testing.T) {
	ctx := testContext(t)
	out := &bytes.Buffer{}
	var queried string
	solver := &challenge.DNS01Prompt{
		In:  strings.NewReader("\n"),
		Out: out,
		Lookup: func(_ context.Context, fqdn string) ([]string, error) {
			queried = fqdn
			return []string{"other", "txtvalue"}, nil
		},
	}
	if got, want := solver.Type(), "dns-01"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if !challenge.IsSequential(solver) {
		t.Errorf("dns-01 prompt solver must be sequential")
	}

	if err := solver.Present(ctx, "example.com", "tok", "txtvalue"); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if got, want := queried, "_acme-challenge.example.com."; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if !strings.Contains(out.String(), "_acme-challenge.example.com") {
		t.Errorf("prompt does not mention the record name: %q", out.String())
	}
	if !strings.Contains(out.String(), "txtvalue") {
		t.Errorf("prompt does not mention the record value: %q", out.String())
	}

	if err := solver.CleanUp(ctx, "example.com", "tok"); err != nil {
		t.Errorf("CleanUp: %v", err)
	}
}

func TestDNS01PromptNoConfirmation(t *testing.T) {
	solver := &challenge.DNS01Prompt{
		In:  strings.NewReader(""), // operator hung up
		Out: io.Discard,
		Lookup: func(context.Context, string) ([]string, error) {
			t.Fatal("lookup should not run without confirmation")
			return nil, nil
		},
	}
	if err := solver.Present(t.Context(), "example.com", "tok", "value"); err == nil {
		t.Fatal("expected an error when no confirmation is received")
	}
}

func TestDNS01PromptMissingRecord(t *testing.T) {
	solver := &challenge.DNS01Prompt{
		In:      strings.NewReader("\n"),
		Out:     io.Discard,
		Retries: 1,
		Lookup: func(context.Context, string) ([]string, error) {
			return []string{"wrong"}, nil
		},
	}
	err := solver.Present(t.Context(), "example.com", "tok", "value")
	if err == nil || !strings.Contains(err.Error(), "expected value") {
		t.Fatalf("expected a missing record error, got %v", err)
	}
}
