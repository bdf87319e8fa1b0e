// Package kb caches the Zendesk Help Center knowledge base.
//
// The knowledge base (sections and their articles) is expensive to load and
// changes rarely, so it is fetched once and served from a Store for an hour.
// MemoryStore keeps the entry in-process; RedisStore shares it between
// replicas. Concurrent misses are collapsed into a single load.
package kb
