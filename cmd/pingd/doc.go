// Command pingd runs the ping dispatch service: an HTTP API that notifies
// search engines, content discovery services, aggregators and WebSub hubs
// when a tracked URL has new content.
package main
