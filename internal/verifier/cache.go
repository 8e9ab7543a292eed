package verifier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/esbmc-ai/esbmc-ai-go/internal/solution"
	"github.com/esbmc-ai/esbmc-ai-go/internal/verifyout"
)

// ResultCache is a process-local, content-addressed cache of verifier
// results, guarded by a mutex since the repair loop may consult it
// from more than one goroutine (e.g. a speculative re-verify racing
// the main attempt loop).
type ResultCache struct {
	mu    sync.RWMutex
	byKey map[string]verifyout.Output
}

// NewResultCache creates an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{byKey: make(map[string]verifyout.Output)}
}

// Get looks up a prior result for the same (solution content, params,
// timeout, entry function) tuple.
func (c *ResultCache) Get(sol *solution.Solution, params Params, timeoutSeconds int, entryFunction string) (verifyout.Output, bool) {
	key := cacheKey(sol, params, timeoutSeconds, entryFunction)
	c.mu.RLock()
	defer c.mu.RUnlock()
	out, ok := c.byKey[key]
	return out, ok
}

// Put records a result under its cache key.
func (c *ResultCache) Put(sol *solution.Solution, params Params, timeoutSeconds int, entryFunction string, out verifyout.Output) {
	key := cacheKey(sol, params, timeoutSeconds, entryFunction)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[key] = out
}

// cacheKey canonicalizes the inputs into a sorted key-value list
// before hashing, so the same logical invocation always produces the
// same key regardless of file ordering in the solution.
func cacheKey(sol *solution.Solution, params Params, timeoutSeconds int, entryFunction string) string {
	var kv []string
	for _, f := range sol.Files() {
		kv = append(kv, f.Path+"="+f.Content)
	}
	sort.Strings(kv)

	flags := append([]string(nil), params.Flags...)
	sort.Strings(flags)

	h := sha256.New()
	fmt.Fprintf(h, "binary=%s\n", params.Binary)
	fmt.Fprintf(h, "flags=%s\n", strings.Join(flags, ","))
	fmt.Fprintf(h, "timeout=%d\n", timeoutSeconds)
	fmt.Fprintf(h, "entry=%s\n", entryFunction)
	for _, pair := range kv {
		fmt.Fprintf(h, "file:%s\n", pair)
	}
	return hex.EncodeToString(h.Sum(nil))
}
