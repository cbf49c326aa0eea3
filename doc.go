/*
Package miniserver provides a small HTTP/1.1 server engine built directly on TCP.

Each accepted connection carries exactly one request. The engine parses the
request line and headers itself, dispatches to a fixed route table and writes a
response whose Content-Length always matches the body, then closes the
connection.

Routes

  - GET  /              fixed greeting
  - GET  /echo/{rest}   echoes {rest}, gzip-encoded when Accept-Encoding lists gzip
  - GET  /user-agent    echoes the User-Agent header
  - GET  /files/{name}  serves a file from the configured directory
  - POST /files/{name}  stores the request body under the configured directory

Quick Start

	package main

	import (
		"context"

		"github.com/searchktools/mini-server/app"
		"github.com/searchktools/mini-server/config"
	)

	func main() {
		application, err := app.New(config.New())
		if err != nil {
			panic(err)
		}
		application.Run(context.Background())
	}

Modules

  - app: Application lifecycle, logging and graceful shutdown
  - config: Configuration from defaults, TOML file, environment and flags
  - core: Engine, accept loop and per-connection state machine
  - core/http: Request parser, response serialization, status table
  - core/negotiate: gzip content-encoding negotiation
  - core/storage: Files confined to a base directory
  - core/router: Exact and wildcard prefix routing
  - core/handler: Route handlers
  - core/middleware: Middleware pipeline (recovery, access log)
  - core/pools: Buffer and connection state pools
  - core/observability: Per-route request monitor

Non-goals: keep-alive, chunked transfer-encoding, TLS, HTTP/2, pipelining and
authentication.
*/
package miniserver
