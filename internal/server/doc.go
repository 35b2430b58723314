// Package server exposes the copilot engine over HTTP.
//
// The API is a thin layer over the session service, prompt registry and
// provider factory:
//
//	POST   /session                    create a session
//	GET    /session                    list sessions (filter via query)
//	GET    /session/{id}               read one session
//	PATCH  /session/{id}               update prompt/doc/pin/title
//	DELETE /session/{id}               soft-delete
//	GET    /session/{id}/message       read the transcript
//	POST   /session/{id}/message       send a turn; stream=true for SSE chunks
//	POST   /session/{id}/fork          branch at an assistant message
//	POST   /session/{id}/revert        drop the latest assistant turn
//	GET    /prompt                     list prompt names
//	GET    /prompt/{name}              prompt metadata
//	GET    /model                      available models and the default
//	GET    /event                      SSE firehose of bus events
//	GET    /metrics                    Prometheus metrics
//
// Errors come back as {"error": {"code", "message"}}; service sentinels map
// onto the statuses a client would expect (not found to 404, invalid input
// to 400, quota to 429, conflicts to 409).
package server
