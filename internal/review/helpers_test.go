package review

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dshills/sherpa/internal/diffparse"
	"github.com/dshills/sherpa/internal/gitctx"
	"github.com/dshills/sherpa/internal/llm"
)

const threeFileDiff = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1,4 +1,5 @@
 package main
-import "os"
+import "fmt"
+import "strings"
 func main() {}
diff --git a/util.go b/util.go
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/util.go
@@ -0,0 +1,5 @@
+package main
+
+func helper() string {
+	return "x"
+}
diff --git a/old.go b/old.go
deleted file mode 100644
index 4444444..0000000
--- a/old.go
+++ /dev/null
@@ -1,3 +0,0 @@
-package main
-
-func unused() {}
`

// fakeClient answers Complete by matching a marker in the prompt, so each
// built-in agent can get its own canned response.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]string
	fallback  string
	err       error
	chatReply string
	chatErr   error

	prompts   []string
	chatCalls int
}

func (f *fakeClient) Name() string  { return "fake" }
func (f *fakeClient) Model() string { return "fake-model" }

func (f *fakeClient) Complete(_ context.Context, p string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return "", f.err
	}
	for marker, resp := range f.responses {
		if strings.Contains(p, marker) {
			return resp, nil
		}
	}
	return f.fallback, nil
}

func (f *fakeClient) Chat(_ context.Context, msgs []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls++
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.chatReply, nil
}

// stubAgent runs fn as its review.
type stubAgent struct {
	name string
	fn   func(ctx context.Context) (AgentReview, error)
}

func (s *stubAgent) Name() string        { return s.name }
func (s *stubAgent) Description() string { return "stub" }

func (s *stubAgent) Review(ctx context.Context, _ *diffparse.ParsedDiff, _ *Context) (AgentReview, error) {
	return s.fn(ctx)
}

// stubRegistry builds a registry whose agents are stubs; built counts
// factory invocations.
func stubRegistry(built *int, agents map[string]func(ctx context.Context) (AgentReview, error)) *Registry {
	r := &Registry{factories: map[string]Factory{}, infos: map[string]string{}}
	var mu sync.Mutex
	for name, fn := range agents {
		r.factories[name] = func(llm.Client) Agent {
			mu.Lock()
			if built != nil {
				*built++
			}
			mu.Unlock()
			return &stubAgent{name: name, fn: fn}
		}
		r.infos[name] = "stub"
	}
	return r
}

func okReview(name string, sev ...Severity) func(context.Context) (AgentReview, error) {
	return func(context.Context) (AgentReview, error) {
		ar := AgentReview{AgentName: name, Comments: []Comment{}, Summary: name + " done"}
		for _, s := range sev {
			ar.Comments = append(ar.Comments, Comment{Agent: name, File: "main.go", Severity: s, Category: "general", Message: "m"})
		}
		return ar, nil
	}
}

type fakeSource struct {
	text  string
	err   error
	scope gitctx.Scope
}

func (f *fakeSource) Diff(_ context.Context, scope gitctx.Scope) (string, error) {
	f.scope = scope
	return f.text, f.err
}

var errBoom = errors.New("boom")
