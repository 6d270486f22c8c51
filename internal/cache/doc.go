// Package cache provides the cache context that query descriptors are bound to.
//
// A Context identifies one named cache and its partitioning. It is created
// once by the cache-management layer and shared read-only by every facade and
// descriptor built against it. Nothing in this module mutates a Context after
// construction, and nothing but its creator manages its lifetime.
package cache
