// Package mcp implements the Model Context Protocol endpoint.
//
// # Protocol
//
// Clients POST one JSON-RPC 2.0 message per request to /mcp. Three methods are
// understood:
//
//   - initialize: returns protocol version 2024-11-05, the declared capabilities
//     (tools, resources) and the server identity.
//   - tools/list: returns every tool definition in catalog order.
//   - tools/call: runs a tool through the engine and returns its text content.
//
// Every other method gets error -32601. There are no sessions and no
// notifications; the server keeps no state between requests.
//
// # Errors
//
// Any failure inside tools/call, including an unknown tool name, a missing OAuth
// credential or an upstream API error, becomes error -32603 carrying the error
// text, with the request id echoed. A body that is not a JSON object becomes
// -32603 with a null id and HTTP status 500.
//
//	{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"No access token found. Please authorize the application first."}}
//
// # Logging
//
// Each tools/call is logged with a generated request_id and, when the endpoint is
// protected by auth.BearerMiddleware, the caller's token subject.
package mcp
