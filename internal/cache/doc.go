// The pipeline stores each parsed module under a key derived from the file
// path and a hash of its text, so a pipeline run repeatedly in one process
// parses an unchanged file once. The entry for an earlier version of a file
// is deleted when the file changes.
//
// Usage:
//
//	c := cache.NewMemoryCache[parser.ParsedModule]()
//	key := cache.ComputeKeyWithPrefix(path, text)
//	if mod, ok := c.Get(ctx, key); ok {
//	    // use cached module
//	}
//	c.Set(ctx, key, mod, cache.NoExpiration)
package cache
