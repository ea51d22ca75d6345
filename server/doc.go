// Package server exposes the application over a local gin HTTP API, the
// surface the desktop UI talks to.
//
// # Routes
//
//   - GET  /health, /ready, /info: component health and build information
//   - GET  /api/status: the application summary
//   - GET  /api/backends: capabilities with their active and known kinds
//   - PUT  /api/backends/:capability: switch the active backend ({"kind", "load"})
//   - POST /api/backends/:capability/load: load the active backend now
//   - POST /api/ocr: multipart "image" with "languages" and "preprocess"
//   - POST /api/classify, /api/translate: JSON text requests
//   - POST /api/speak: JSON text request answered with audio/wav
//   - POST /api/pipeline: OCR, detection and optional translation of one image
//
// Errors are answered with the status and body of the errors.AppError they
// carry. The middleware in server/middleware wraps the whole engine.
package server
